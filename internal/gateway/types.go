package gateway

import (
	"context"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/identity"
)

// Chaincode functions exposed by the healthcare records contract.
const (
	fnAddRecord         = "AddRecord"
	fnAuthorizeProvider = "AuthorizeProvider"
	fnGetOwner          = "GetOwner"
	fnGetPatientRecords = "GetPatientRecords"
)

const x509IDPrefix = "x509::"

// Account is an identity the wallet has authorized, together with the
// signer bound to it.
type Account struct {
	// Address is the client identity id the contract sees for this account.
	Address  string
	Identity identity.Identity
	Sign     identity.Sign
}

// Record is a medical record as stored by the contract. Timestamp is in
// unix seconds.
type Record struct {
	RecordID    uint64 `json:"recordID"`
	PatientName string `json:"patientName"`
	Diagnosis   string `json:"diagnosis"`
	Treatment   string `json:"treatment"`
	Timestamp   uint64 `json:"timestamp"`
}

// NewRecord is the payload of AddRecord.
type NewRecord struct {
	PatientID   uint64
	PatientName string
	Diagnosis   string
	Treatment   string
}

// Snapshot is a read-only copy of the active connection.
type Snapshot struct {
	AccountAddress string
	IsOwner        bool
	ConnectedAt    time.Time
}

// Wallet is the host capability that authorizes an account.
type Wallet interface {
	// Authorize asks the wallet for an account. Implementations return an
	// error wrapping ErrWalletMissing when they hold no identity.
	Authorize(ctx context.Context) (*Account, error)
}

// Contract is a handle to the deployed contract bound to one account.
type Contract interface {
	// Submit sends a state-changing transaction and returns once it has
	// been committed.
	Submit(ctx context.Context, name string, args ...string) ([]byte, error)
	// Evaluate runs a read-only query.
	Evaluate(ctx context.Context, name string, args ...string) ([]byte, error)
	Close() error
}

// Connector builds a contract handle that signs as the given account.
type Connector interface {
	Connect(ctx context.Context, account *Account) (Contract, error)
}
