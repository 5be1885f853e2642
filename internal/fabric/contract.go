package fabric

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"google.golang.org/grpc"

	"github.com/ApolloMedTech/HealthcareRecords/internal/config"
	"github.com/ApolloMedTech/HealthcareRecords/internal/gateway"
)

// Connector opens Fabric Gateway sessions over a shared gRPC connection.
type Connector struct {
	conn grpc.ClientConnInterface
	cfg  config.FabricConfig
}

// NewConnector returns a connector for the channel and chaincode in cfg.
func NewConnector(conn grpc.ClientConnInterface, cfg config.FabricConfig) *Connector {
	return &Connector{conn: conn, cfg: cfg}
}

// Connect creates a Gateway session for the account and returns the
// contract handle bound to it. No network call is made until the first
// transaction.
func (c *Connector) Connect(_ context.Context, account *gateway.Account) (gateway.Contract, error) {
	if account == nil || account.Identity == nil {
		return nil, errors.New("account has no identity")
	}
	if account.Sign == nil {
		return nil, errors.New("account has no signer")
	}

	gw, err := client.Connect(
		account.Identity,
		client.WithSign(account.Sign),
		client.WithClientConnection(c.conn),
		client.WithEvaluateTimeout(c.cfg.EvaluateTimeout),
		client.WithEndorseTimeout(c.cfg.EndorseTimeout),
		client.WithSubmitTimeout(c.cfg.SubmitTimeout),
		client.WithCommitStatusTimeout(c.cfg.CommitStatusTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gateway: %w", err)
	}

	network := gw.GetNetwork(c.cfg.ChannelName)
	return &Contract{
		gateway:  gw,
		contract: network.GetContract(c.cfg.ChaincodeName),
	}, nil
}

// Contract adapts a Fabric contract to gateway.Contract.
type Contract struct {
	gateway  *client.Gateway
	contract *client.Contract
}

// Submit a transaction synchronously, blocking until it has been committed
// to the ledger.
func (c *Contract) Submit(ctx context.Context, name string, args ...string) ([]byte, error) {
	result, err := c.contract.SubmitWithContext(ctx, name, client.WithArguments(args...))
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// Evaluate a transaction to query ledger state.
func (c *Contract) Evaluate(ctx context.Context, name string, args ...string) ([]byte, error) {
	result, err := c.contract.EvaluateWithContext(ctx, name, client.WithArguments(args...))
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// Close ends the Gateway session. The shared gRPC connection stays open.
func (c *Contract) Close() error {
	return c.gateway.Close()
}
