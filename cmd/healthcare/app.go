package main

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ApolloMedTech/HealthcareRecords/internal/config"
	"github.com/ApolloMedTech/HealthcareRecords/internal/fabric"
	"github.com/ApolloMedTech/HealthcareRecords/internal/gateway"
	"github.com/ApolloMedTech/HealthcareRecords/internal/logger"
	"github.com/ApolloMedTech/HealthcareRecords/internal/wallet"
)

type gatewayFactory func(cfg *config.Config, log *zap.Logger) (*gateway.Gateway, func() error, error)

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg        *config.Config
	log        *zap.Logger
	gw         *gateway.Gateway
	close      func() error
	newGateway gatewayFactory
}

func newApp() *app {
	return &app{newGateway: newFabricGateway}
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	log, err := logger.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		return err
	}

	gw, closeFn, err := a.newGateway(cfg, log)
	if err != nil {
		_ = log.Sync()
		return err
	}

	a.cfg, a.log, a.gw, a.close = cfg, log, gw, closeFn
	return nil
}

func (a *app) teardown() error {
	var errs []error
	if a.gw != nil {
		errs = append(errs, a.gw.Disconnect())
	}
	if a.close != nil {
		errs = append(errs, a.close())
	}
	if a.log != nil {
		// Sync on stderr returns EINVAL on some platforms.
		_ = a.log.Sync()
	}
	return errors.Join(errs...)
}

// newFabricGateway wires the wallet and the Fabric transport into a Gateway.
// A missing wallet directory is not an error here: Connect reports it as
// WalletUnavailable.
func newFabricGateway(cfg *config.Config, log *zap.Logger) (*gateway.Gateway, func() error, error) {
	var wlt gateway.Wallet
	w, err := wallet.Open(cfg.Wallet.Path, cfg.Wallet.MSPID)
	switch {
	case err == nil:
		wlt = w
	case errors.Is(err, gateway.ErrWalletMissing):
		log.Warn("wallet not found", zap.String("path", cfg.Wallet.Path))
	default:
		return nil, nil, err
	}

	conn, err := fabric.NewGrpcConnection(cfg.Fabric)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reach gateway peer: %w", err)
	}

	log.Debug("gateway configured",
		zap.String("peer", cfg.Fabric.PeerEndpoint),
		zap.String("channel", cfg.Fabric.ChannelName),
		zap.String("chaincode", cfg.Fabric.ChaincodeName),
	)

	gw := gateway.New(wlt, fabric.NewConnector(conn, cfg.Fabric), gateway.WithLogger(log))
	return gw, conn.Close, nil
}
