// Command p2p-trade-desk-backend checks a configuration file before a
// deploy. The API server itself lives in cmd/api.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/config"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/telemetry"
)

func main() {
	configPath := flag.String("config", "", "configuration file to check")
	strict := flag.Bool("strict", false, "fail when an identity provider is left unconfigured")
	flag.Parse()

	if err := check(*configPath, *strict); err != nil {
		slog.Error("configuration check failed", "error", err)
		os.Exit(1)
	}
}

func check(path string, strict bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	providers := map[string]config.ProviderConfig{
		"authenticity": cfg.Providers.Authenticity,
		"face_match":   cfg.Providers.FaceMatch,
		"liveness":     cfg.Providers.Liveness,
		"address":      cfg.Providers.Address,
		"sanctions":    cfg.Providers.Sanctions,
	}
	var missing []string
	for _, name := range []string{"authenticity", "face_match", "liveness", "address", "sanctions"} {
		if !providers[name].Configured() {
			missing = append(missing, name)
		}
	}

	logger.Info("configuration loaded",
		"version", cfg.Version,
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
		"rate_limit_enabled", cfg.Security.RateLimit.Enabled,
		"unconfigured_providers", missing,
	)

	if strict && len(missing) > 0 {
		return fmt.Errorf("%d identity providers unconfigured: %v", len(missing), missing)
	}
	return nil
}
