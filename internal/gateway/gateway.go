package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gateway owns the connection to the healthcare records contract and
// exposes its operations. The zero value is not usable; call New.
type Gateway struct {
	wallet    Wallet
	connector Connector
	log       *zap.Logger
	now       func() time.Time

	mu   sync.RWMutex
	conn *connection
}

type connection struct {
	accountAddress string
	isOwner        bool
	contract       Contract
	connectedAt    time.Time
}

func (c *connection) snapshot() Snapshot {
	return Snapshot{
		AccountAddress: c.accountAddress,
		IsOwner:        c.isOwner,
		ConnectedAt:    c.connectedAt,
	}
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger used for operation logs.
func WithLogger(log *zap.Logger) Option {
	return func(g *Gateway) {
		if log != nil {
			g.log = log
		}
	}
}

// WithClock overrides the time source used for ConnectedAt.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// New creates a disconnected Gateway. A nil wallet is allowed; Connect then
// fails with WalletUnavailable.
func New(wallet Wallet, connector Connector, opts ...Option) *Gateway {
	g := &Gateway{
		wallet:    wallet,
		connector: connector,
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Connect authorizes an account with the wallet, opens a contract handle
// signed by it and checks whether it owns the contract. Any previous
// connection is dropped first, so on failure the Gateway is disconnected.
func (g *Gateway) Connect(ctx context.Context) (Snapshot, error) {
	log := g.opLogger("connect")

	if err := g.Disconnect(); err != nil {
		log.Warn("failed to close previous connection", zap.Error(err))
	}

	if g.wallet == nil {
		log.Warn("no wallet capability present")
		return Snapshot{}, newError(KindWalletUnavailable, "no wallet capability present", nil)
	}

	account, err := g.wallet.Authorize(ctx)
	if err != nil {
		if errors.Is(err, ErrWalletMissing) {
			log.Warn("wallet holds no identity", zap.Error(err))
			return Snapshot{}, newError(KindWalletUnavailable, err.Error(), err)
		}
		log.Error("account authorization failed", zap.Error(err))
		return Snapshot{}, newError(KindConnectionFailed, "account authorization failed: "+err.Error(), err)
	}
	if account == nil {
		return Snapshot{}, newError(KindConnectionFailed, "wallet returned no account", nil)
	}
	log = log.With(zap.String("account", account.Address))

	if g.connector == nil {
		return Snapshot{}, newError(KindConnectionFailed, "no contract connector configured", nil)
	}
	contract, err := g.connector.Connect(ctx, account)
	if err != nil {
		log.Error("failed to open contract", zap.Error(err))
		return Snapshot{}, newError(KindConnectionFailed, "failed to open contract: "+err.Error(), err)
	}

	owner, err := g.owner(ctx, contract)
	if err != nil {
		log.Error("failed to read contract owner", zap.Error(err))
		if cerr := contract.Close(); cerr != nil {
			log.Warn("failed to close contract", zap.Error(cerr))
		}
		return Snapshot{}, newError(KindConnectionFailed, "failed to read contract owner: "+err.Error(), err)
	}

	conn := &connection{
		accountAddress: account.Address,
		isOwner:        sameAddress(account.Address, owner),
		contract:       contract,
		connectedAt:    g.now(),
	}
	g.replace(conn)

	log.Info("connected", zap.Bool("is_owner", conn.isOwner))
	return conn.snapshot(), nil
}

// Disconnect drops the active connection, if any.
func (g *Gateway) Disconnect() error {
	g.mu.Lock()
	conn := g.conn
	g.conn = nil
	g.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.contract.Close()
}

// Snapshot returns the active connection and whether there is one.
func (g *Gateway) Snapshot() (Snapshot, bool) {
	conn := g.current()
	if conn == nil {
		return Snapshot{}, false
	}
	return conn.snapshot(), true
}

// IsConnected reports whether Connect has succeeded and not been reset.
func (g *Gateway) IsConnected() bool {
	return g.current() != nil
}

// AuthorizeProvider grants provider permission to add records. Only the
// contract owner may do this; the contract enforces it and a rejection is
// reported as TransactionFailed.
func (g *Gateway) AuthorizeProvider(ctx context.Context, provider string) error {
	return g.submit(ctx, "authorize provider", fnAuthorizeProvider, provider)
}

// AddRecord appends a medical record for a patient. Field contents are not
// checked here.
func (g *Gateway) AddRecord(ctx context.Context, rec NewRecord) error {
	return g.submit(ctx, "add record", fnAddRecord,
		strconv.FormatUint(rec.PatientID, 10),
		rec.PatientName,
		rec.Diagnosis,
		rec.Treatment,
	)
}

// GetPatientRecords lists the records stored for a patient, in the order
// the contract returns them. A patient without records yields an empty
// slice.
func (g *Gateway) GetPatientRecords(ctx context.Context, patientID uint64) ([]Record, error) {
	conn := g.current()
	if conn == nil {
		return nil, newError(KindNotConnected, "get patient records: wallet not connected", nil)
	}

	id := strconv.FormatUint(patientID, 10)
	log := g.opLogger("get patient records").With(zap.String("patient_id", id))

	payload, err := conn.contract.Evaluate(ctx, fnGetPatientRecords, id)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, newError(KindQueryFailed, "get patient records: "+err.Error(), err)
	}

	records, err := decodeRecords(payload)
	if err != nil {
		log.Error("failed to decode records", zap.Error(err))
		return nil, newError(KindQueryFailed, "get patient records: "+err.Error(), err)
	}

	log.Debug("records fetched", zap.Int("count", len(records)))
	return records, nil
}

func (g *Gateway) submit(ctx context.Context, op, fn string, args ...string) error {
	conn := g.current()
	if conn == nil {
		return newError(KindNotConnected, op+": wallet not connected", nil)
	}

	log := g.opLogger(op).With(zap.String("account", conn.accountAddress))
	log.Debug("submitting transaction", zap.String("function", fn))

	if _, err := conn.contract.Submit(ctx, fn, args...); err != nil {
		log.Error("transaction failed", zap.Error(err))
		return newError(KindTransactionFailed, op+": "+err.Error(), err)
	}

	log.Info("transaction committed")
	return nil
}

func (g *Gateway) owner(ctx context.Context, contract Contract) (string, error) {
	payload, err := contract.Evaluate(ctx, fnGetOwner)
	if err != nil {
		return "", err
	}
	payload = bytes.TrimSpace(payload)

	// contractapi devolve strings sem aspas, mas aceitamos JSON também.
	if len(payload) > 0 && payload[0] == '"' {
		var owner string
		if err := json.Unmarshal(payload, &owner); err != nil {
			return "", fmt.Errorf("failed to parse owner: %w", err)
		}
		return owner, nil
	}
	return string(payload), nil
}

func (g *Gateway) current() *connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.conn
}

func (g *Gateway) replace(conn *connection) {
	g.mu.Lock()
	old := g.conn
	g.conn = conn
	g.mu.Unlock()

	if old != nil {
		if err := old.contract.Close(); err != nil {
			g.log.Warn("failed to close replaced connection", zap.Error(err))
		}
	}
}

func (g *Gateway) opLogger(op string) *zap.Logger {
	return g.log.With(zap.String("op_id", uuid.NewString()), zap.String("operation", op))
}

func decodeRecords(payload []byte) ([]Record, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// sameAddress compares account addresses ignoring case. Client identity ids
// are base64 encoded by the chaincode, so they are compared decoded.
func sameAddress(a, b string) bool {
	return strings.EqualFold(canonicalAddress(a), canonicalAddress(b))
}

// canonicalAddress decodes a base64 "x509::" client identity id and returns
// any other value trimmed as is.
func canonicalAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	decoded, err := base64.StdEncoding.DecodeString(addr)
	if err != nil || !strings.HasPrefix(string(decoded), x509IDPrefix) {
		return addr
	}
	return string(decoded)
}
