// Package wallet loads a Fabric client identity from an MSP directory and
// hands it to the gateway as an authorized account.
package wallet

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperledger/fabric-gateway/pkg/identity"

	"github.com/ApolloMedTech/HealthcareRecords/internal/gateway"
)

const (
	signcertsDir = "signcerts"
	keystoreDir  = "keystore"
)

// Wallet is an on-disk MSP directory:
//
//	<dir>/signcerts/<cert>.pem
//	<dir>/keystore/<key>
type Wallet struct {
	dir   string
	mspID string
}

// Open returns the wallet rooted at dir. It fails with
// gateway.ErrWalletMissing when dir does not exist.
func Open(dir, mspID string) (*Wallet, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("wallet %s: %w", dir, gateway.ErrWalletMissing)
		}
		return nil, fmt.Errorf("failed to open wallet: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("wallet %s is not a directory", dir)
	}
	if mspID == "" {
		return nil, errors.New("wallet requires an MSP ID")
	}
	return &Wallet{dir: dir, mspID: mspID}, nil
}

// Authorize loads the identity and its private key and returns the account
// they represent.
func (w *Wallet) Authorize(ctx context.Context) (*gateway.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	certificate, err := w.certificate()
	if err != nil {
		return nil, err
	}

	id, err := identity.NewX509Identity(w.mspID, certificate)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	sign, err := w.sign()
	if err != nil {
		return nil, err
	}

	return &gateway.Account{
		Address:  Address(certificate),
		Identity: id,
		Sign:     sign,
	}, nil
}

// Address is the client identity id of a certificate as chaincode sees it
// through cid.GetID: base64 of "x509::<subject>::<issuer>".
func Address(certificate *x509.Certificate) string {
	id := fmt.Sprintf("x509::%s::%s", certificate.Subject.String(), certificate.Issuer.String())
	return base64.StdEncoding.EncodeToString([]byte(id))
}

func (w *Wallet) certificate() (*x509.Certificate, error) {
	filename, err := firstFile(filepath.Join(w.dir, signcertsDir))
	if err != nil {
		return nil, err
	}
	return loadCertificate(filename)
}

func (w *Wallet) sign() (identity.Sign, error) {
	filename, err := firstFile(filepath.Join(w.dir, keystoreDir))
	if err != nil {
		return nil, err
	}

	privateKeyPEM, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	privateKey, err := identity.PrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	sign, err := identity.NewPrivateKeySign(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}
	return sign, nil
}

func loadCertificate(filename string) (*x509.Certificate, error) {
	certificatePEM, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file: %w", err)
	}
	certificate, err := identity.CertificateFromPEM(certificatePEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return certificate, nil
}

// firstFile returns the first regular file in dir, by name. The keystore
// holds a single key whose file name is generated.
func firstFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", dir, gateway.ErrWalletMissing)
		}
		return "", fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%s is empty: %w", dir, gateway.ErrWalletMissing)
	}
	return filepath.Join(dir, names[0]), nil
}
