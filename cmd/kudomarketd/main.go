package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"kudomarket/config"
	"kudomarket/core"
	"kudomarket/crypto"
	"kudomarket/observability/logging"
	"kudomarket/rpc"
	"kudomarket/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("KUDO_ENV"))
	logger := logging.Setup("kudomarketd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	params, err := nodeParams(cfg)
	if err != nil {
		logger.Error("Invalid node parameters", slog.Any("error", err))
		os.Exit(1)
	}

	node, err := core.NewNode(db, params)
	if err != nil {
		logger.Error("Failed to initialise node", slog.Any("error", err))
		os.Exit(1)
	}

	server := rpc.NewServer(node)
	logger.Info("RPC server listening",
		slog.String("address", cfg.RPCAddress),
		slog.Uint64("chainId", cfg.ChainID),
		slog.String("market", cfg.MarketAddress))
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func nodeParams(cfg *config.Config) (core.Params, error) {
	market, err := crypto.DecodeAddress(cfg.MarketAddress)
	if err != nil {
		return core.Params{}, fmt.Errorf("market address: %w", err)
	}
	admin, err := crypto.DecodeAddress(cfg.AdminAddress)
	if err != nil {
		return core.Params{}, fmt.Errorf("admin address: %w", err)
	}
	fwd, err := crypto.DecodeAddress(cfg.ForwarderAddress)
	if err != nil {
		return core.Params{}, fmt.Errorf("forwarder address: %w", err)
	}
	return core.Params{
		ChainID:          cfg.ChainID,
		MarketAddress:    market.Array(),
		AdminAddress:     admin.Array(),
		ForwarderAddress: fwd.Array(),
		DomainName:       cfg.DomainName,
		DomainVersion:    cfg.DomainVersion,
	}, nil
}
