package wallet

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ApolloMedTech/HealthcareRecords/internal/gateway"
)

// writeMSP creates a self-signed client identity in the MSP layout.
func writeMSP(t *testing.T, dir string) *ecdsa.PrivateKey {
	t.Helper()

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:         "User1@org1.example.com",
			OrganizationalUnit: []string{"client"},
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().Add(time.Hour),
		KeyUsage:  x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	require.NoError(t, err)

	keyDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, signcertsDir), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, keystoreDir), 0o700))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, signcertsDir, "cert.pem"),
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		0o644,
	))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, keystoreDir, "a1b2c3_sk"),
		pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
		0o600,
	))
	return privateKey
}

func TestOpen(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope"), "Org1MSP")
		assert.ErrorIs(t, err, gateway.ErrWalletMissing)
	})

	t.Run("file instead of directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "wallet")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		_, err := Open(file, "Org1MSP")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, gateway.ErrWalletMissing)
	})

	t.Run("missing msp id", func(t *testing.T) {
		_, err := Open(t.TempDir(), "")
		assert.Error(t, err)
	})
}

func TestWallet_Authorize(t *testing.T) {
	t.Run("loads identity and signer", func(t *testing.T) {
		dir := t.TempDir()
		privateKey := writeMSP(t, dir)

		w, err := Open(dir, "Org1MSP")
		require.NoError(t, err)

		account, err := w.Authorize(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "Org1MSP", account.Identity.MspID())
		assert.Contains(t, string(account.Identity.Credentials()), "BEGIN CERTIFICATE")
		const id = "x509::CN=User1@org1.example.com,OU=client::CN=User1@org1.example.com,OU=client"
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte(id)), account.Address)
		decoded, err := base64.StdEncoding.DecodeString(account.Address)
		require.NoError(t, err)
		assert.Equal(t, id, string(decoded))

		digest := sha256.Sum256([]byte("AddRecord"))
		signature, err := account.Sign(digest[:])
		require.NoError(t, err)
		assert.True(t, ecdsa.VerifyASN1(&privateKey.PublicKey, digest[:], signature))
	})

	t.Run("empty wallet", func(t *testing.T) {
		w, err := Open(t.TempDir(), "Org1MSP")
		require.NoError(t, err)

		_, err = w.Authorize(context.Background())
		assert.ErrorIs(t, err, gateway.ErrWalletMissing)
	})

	t.Run("missing private key", func(t *testing.T) {
		dir := t.TempDir()
		writeMSP(t, dir)
		require.NoError(t, os.RemoveAll(filepath.Join(dir, keystoreDir)))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, keystoreDir), 0o700))

		w, err := Open(dir, "Org1MSP")
		require.NoError(t, err)

		_, err = w.Authorize(context.Background())
		assert.ErrorIs(t, err, gateway.ErrWalletMissing)
	})

	t.Run("malformed certificate", func(t *testing.T) {
		dir := t.TempDir()
		writeMSP(t, dir)
		require.NoError(t, os.WriteFile(filepath.Join(dir, signcertsDir, "cert.pem"), []byte("garbage"), 0o644))

		w, err := Open(dir, "Org1MSP")
		require.NoError(t, err)

		_, err = w.Authorize(context.Background())
		require.Error(t, err)
		assert.NotErrorIs(t, err, gateway.ErrWalletMissing)
	})

	t.Run("cancelled context", func(t *testing.T) {
		dir := t.TempDir()
		writeMSP(t, dir)
		w, err := Open(dir, "Org1MSP")
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = w.Authorize(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
