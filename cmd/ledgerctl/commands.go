package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"affiliate-ledger/internal/database"
	"affiliate-ledger/internal/services/ledger/rules"
	"affiliate-ledger/internal/utils"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the ledger tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return fmt.Errorf("connect to db: %w", err)
			}
			if err := database.MigrateLedgerDB(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Ledger schema is up to date")
			return nil
		},
	}
}

func auditCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "audit [affiliate-id...]",
		Short: "Rebuild balances from the record log and report drift",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "AFFILIATE\tCOMMISSIONS\tOVERRIDES\tBONUSES\tEXPECTED\tSTORED\tDRIFT")
			drifted := 0
			for _, id := range args {
				audit, err := s.ledger.AuditBalance(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("audit %s: %w", id, err)
				}
				if !audit.Consistent() {
					drifted++
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", id,
					audit.Commissions.StringFixed(2),
					audit.OverridesEarned.StringFixed(2),
					audit.MilestoneBonuses.StringFixed(2),
					audit.Expected.StringFixed(2),
					audit.Stored.StringFixed(2),
					audit.Drift.StringFixed(2))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if strict && drifted > 0 {
				return fmt.Errorf("%d of %d balances drifted", drifted, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any balance drifted")
	return cmd
}

func submitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "submit [order.json|-]",
		Short: "Credit a paid order from a JSON file, e.g. to replay a missed delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			var order rules.OrderAttribution
			if err := json.NewDecoder(r).Decode(&order); err != nil {
				return fmt.Errorf("decode order: %w", err)
			}

			s, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.ledger.SubmitOrderForCommission(cmd.Context(), order)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "order %s: %s\n", res.OrderID, res.Outcome)
			if !res.TotalCommission.IsZero() {
				fmt.Fprintf(out, "commission %s %s, balance %s\n",
					res.Currency, res.TotalCommission.StringFixed(2), res.Balance.StringFixed(2))
			}
			for _, m := range res.Milestones {
				fmt.Fprintf(out, "milestone %s: +%s\n", m.Type, m.BonusAmount.StringFixed(2))
			}
			return nil
		},
	}
}

func autoApproveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auto-approve",
		Short: "Approve applications pending longer than LEDGER_AUTO_APPROVE_AFTER",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			n, err := s.ledger.AutoApprove(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "approved %d application(s)\n", n)
			return nil
		},
	}
}

func retryOverridesCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "retry-overrides",
		Short: "Drain the override retry queue once",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer s.close()

			n, err := s.ledger.DrainOverrideRetries(cmd.Context(), limit)
			if err != nil {
				return err
			}
			left, err := s.queue.Len(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d job(s), %d still queued\n", n, left)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum jobs to process")
	return cmd
}

func leaderboardCmd(a *app) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "List approved affiliates by total sales value",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			top, err := s.ledger.Leaderboard(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(top)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tCODE\tUNITS\tSALES\tRATE")
			for i, aff := range top {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s%%\n", i+1, aff.ReferralCode, aff.TotalSalesCount,
					aff.TotalSalesValue.StringFixed(2), aff.CommissionRate.String())
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of affiliates")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}

func tokenCmd(a *app) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a gateway bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch role {
			case utils.RoleAdmin, utils.RoleAffiliate, utils.RoleOrderSource:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			issuer, err := utils.NewTokenIssuer(a.cfg.Auth.JWTSecret)
			if err != nil {
				return err
			}
			tok, exp, err := issuer.GenerateToken(userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (subject)")
	cmd.Flags().StringVar(&role, "role", utils.RoleOrderSource, "admin, affiliate or order-source")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
