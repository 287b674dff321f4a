package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"affiliate-ledger/config"
	"affiliate-ledger/internal/database"
	"affiliate-ledger/internal/services/ledger/handler"
	"affiliate-ledger/internal/services/ledger/service"
	proto "affiliate-ledger/proto/ledgerpb"

	"google.golang.org/grpc"
)

func main() {
	serverCfg := config.LoadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "ledger")

	redisClient := config.NewRedisClient(serverCfg.Redis)
	defer redisClient.Close()

	db, err := database.NewConnection(serverCfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}

	if err := database.MigrateLedgerDB(db); err != nil {
		log.Fatalf("Failed to migrate Ledger database: %v", err)
	}

	rules, err := config.LoadRules(serverCfg.Ledger.RulesFile)
	if err != nil {
		log.Fatalf("Failed to load commission rules: %v", err)
	}

	ledger := service.New(db, rules,
		service.WithLogger(logger),
		service.WithNotifier(service.NewRedisNotifier(redisClient)),
		service.WithOverrideQueue(service.NewRedisOverrideQueue(redisClient)),
		service.WithSummaryCache(service.NewRedisSummaryCache(redisClient, logger)),
		service.WithRetry(serverCfg.Ledger.MaxAttempts, serverCfg.Ledger.RetryBaseDelay),
		service.WithAutoApproveAfter(serverCfg.Ledger.AutoApproveAfter),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go ledger.RunWorkers(ctx, serverCfg.Ledger.WorkerInterval, serverCfg.Ledger.WorkerBatch)

	lis, err := net.Listen("tcp", serverCfg.GRPC.Addr)
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}

	s := grpc.NewServer(grpc.UnaryInterceptor(handler.UnaryLogger(logger)))
	proto.RegisterLedgerServiceServer(s, handler.NewLedgerHandler(ledger))

	go func() {
		<-ctx.Done()
		log.Println("Shutting down ledger service")
		s.GracefulStop()
	}()

	log.Printf(" 📒 Ledger service listening on %s", serverCfg.GRPC.Addr)
	if err := s.Serve(lis); err != nil {
		log.Fatalf("Failed to serve: %v", err)
	}
}
