package fabric

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ApolloMedTech/HealthcareRecords/internal/config"
)

func TestNewGrpcConnection(t *testing.T) {
	t.Run("missing tls certificate", func(t *testing.T) {
		_, err := NewGrpcConnection(config.FabricConfig{
			PeerEndpoint: "localhost:7051",
			GatewayPeer:  "peer0.org1.example.com",
			TLSCertPath:  filepath.Join(t.TempDir(), "ca.crt"),
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read certificate file")
	})

	t.Run("creates client", func(t *testing.T) {
		certificate, _ := newCertificate(t, "peer0.org1.example.com")

		conn, err := NewGrpcConnection(config.FabricConfig{
			PeerEndpoint: "localhost:7051",
			GatewayPeer:  "peer0.org1.example.com",
			TLSCertPath:  writeCertificate(t, certificate),
		})

		require.NoError(t, err)
		assert.Equal(t, "localhost:7051", conn.Target())
		assert.NoError(t, conn.Close())
	})
}
