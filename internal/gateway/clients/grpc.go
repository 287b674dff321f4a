package clients

import (
	"fmt"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	proto "affiliate-ledger/proto/ledgerpb"
)

type GRPCClients struct {
	Ledger     proto.LedgerServiceClient
	ledgerConn *grpc.ClientConn
}

func NewGRPCClients(ledgerAddr string) (*GRPCClients, error) {
	ledgerConn, err := grpc.NewClient(ledgerAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("ledger service connection failed: %v", err)
	}

	clients := &GRPCClients{
		Ledger:     proto.NewLedgerServiceClient(ledgerConn),
		ledgerConn: ledgerConn,
	}

	log.Println("✅ Connected to ledger gRPC service")
	return clients, nil
}

// NewGRPCClientsWithFallback never returns nil. Services that could not be
// set up are left nil so routes can answer 503 instead of crashing.
func NewGRPCClientsWithFallback(ledgerAddr string) (*GRPCClients, error) {
	clients, err := NewGRPCClients(ledgerAddr)
	if err != nil {
		return &GRPCClients{}, err
	}
	return clients, nil
}

func (c *GRPCClients) IsLedgerServiceHealthy() bool {
	if c.Ledger == nil {
		return false
	}
	if c.ledgerConn == nil {
		// Injected client, e.g. in tests.
		return true
	}
	switch c.ledgerConn.GetState() {
	case connectivity.Idle:
		c.ledgerConn.Connect()
		return true
	case connectivity.TransientFailure, connectivity.Shutdown:
		return false
	}
	return true
}

func (c *GRPCClients) Close() {
	if c.ledgerConn != nil {
		c.ledgerConn.Close()
	}
}
