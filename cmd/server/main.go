// Command server runs the skillbridge gateway in front of the Anthropic
// Skills API.
//
// Configuration is read from config.yaml (or SKILLBRIDGE_CONFIG), .env
// files and the environment. The minimum is:
//
//	ANTHROPIC_API_KEY     - upstream API key (not needed with auth.type=passthrough)
//	SKILLBRIDGE_PORT      - listen port (default: 8000)
//	SKILLBRIDGE_BASE_URL  - upstream base URL, e.g. a mock upstream (optional)
//	SKILLBRIDGE_STORAGE   - session ledger: "memory" or "postgres" (default: "memory")
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/auth"
	"github.com/Kenerlee/skillbridge/pkg/auth/apikey"
	"github.com/Kenerlee/skillbridge/pkg/auth/noop"
	"github.com/Kenerlee/skillbridge/pkg/auth/passthrough"
	"github.com/Kenerlee/skillbridge/pkg/config"
	"github.com/Kenerlee/skillbridge/pkg/engine"
	"github.com/Kenerlee/skillbridge/pkg/provider/anthropic"
	"github.com/Kenerlee/skillbridge/pkg/skills"
	"github.com/Kenerlee/skillbridge/pkg/storage/memory"
	"github.com/Kenerlee/skillbridge/pkg/storage/postgres"
	"github.com/Kenerlee/skillbridge/pkg/transport"
	transporthttp "github.com/Kenerlee/skillbridge/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.Logging)
	slog.SetDefault(logger)

	prov, err := anthropic.New(anthropic.Config{
		APIKey:     cfg.Upstream.APIKey,
		BaseURL:    cfg.Upstream.BaseURL,
		Timeout:    cfg.Upstream.Timeout,
		MaxRetries: cfg.Upstream.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}
	defer prov.Close()

	catalog, err := buildCatalog(cfg.Skills)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	inflight := transport.NewInFlightRegistry()

	engCfg := engine.DefaultConfig()
	engCfg.Model = cfg.Upstream.Model
	engCfg.BufferSize = cfg.Stream.BufferSize
	engCfg.PollInterval = cfg.Stream.PollInterval
	engCfg.HeartbeatInterval = cfg.Stream.HeartbeatInterval
	engCfg.DetachOnDisconnect = cfg.Stream.DetachOnDisconnect

	eng, err := engine.New(prov, catalog, store, inflight, engCfg)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	adapterCfg := transporthttp.DefaultConfig()
	adapterCfg.Version = version()
	adapterCfg.RateLimit = rateLimitLabel(cfg.Auth.RateLimit.RequestsPerSecond)
	adapterCfg.APIKeyConfigured = cfg.Upstream.APIKey != ""
	adapterCfg.CORSOrigins = cfg.Server.CORSOrigins
	adapterCfg.MetricsPath = ""
	if cfg.Observability.Metrics.Enabled {
		adapterCfg.MetricsPath = cfg.Observability.Metrics.Path
	}
	adapterCfg.Auth = authMiddleware(cfg.Auth)

	srv := transporthttp.NewServer(transporthttp.Deps{
		Service:  eng,
		Models:   eng,
		Catalog:  catalog,
		Files:    prov,
		Store:    store,
		InFlight: inflight,
	},
		transporthttp.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithLogger(logger),
		transporthttp.WithAdapterConfig(adapterCfg),
	)

	logger.Info("skillbridge configured",
		slog.Int("port", cfg.Server.Port),
		slog.String("model", cfg.Upstream.Model),
		slog.String("auth", cfg.Auth.Type),
		slog.String("storage", cfg.Storage.Type),
		slog.Int("skills", len(catalog.List())),
		slog.Bool("upstream_key", cfg.Upstream.APIKey != ""),
	)

	return srv.ListenAndServe()
}

func newLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func buildCatalog(extra []config.SkillConfig) (*skills.Catalog, error) {
	catalog := skills.Default()
	for _, s := range extra {
		typ := api.SkillType(s.Type)
		if typ == "" {
			typ = api.SkillTypeCustom
		}
		name := s.Name
		if name == "" {
			name = s.ID
		}
		if err := catalog.Add(skills.Skill{
			ID:          s.ID,
			Type:        typ,
			Name:        name,
			Description: s.Description,
		}); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func openStore(ctx context.Context, cfg config.StorageConfig) (transport.SessionStore, error) {
	switch cfg.Type {
	case "postgres":
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		store, err := postgres.New(connectCtx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres ledger: %w", err)
		}
		slog.Info("session ledger enabled", "type", "postgres")
		return store, nil
	default:
		slog.Info("session ledger enabled", "type", "memory", "max_size", cfg.MaxSize)
		return memory.New(cfg.MaxSize), nil
	}
}

func authMiddleware(cfg config.AuthConfig) func(next http.Handler) http.Handler {
	chain := &auth.AuthChain{DefaultDecision: auth.No}
	switch cfg.Type {
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			id := auth.Identity{Subject: k.Subject, ServiceTier: k.ServiceTier}
			if k.TenantID != "" {
				id.Metadata = map[string]string{"tenant_id": k.TenantID}
			}
			entries = append(entries, apikey.RawKeyEntry{Key: k.Key, Identity: id})
		}
		chain.Authenticators = []auth.Authenticator{apikey.New(entries)}
	case "passthrough":
		chain.Authenticators = []auth.Authenticator{&passthrough.Authenticator{
			ServiceTier:   auth.DefaultTier,
			RequirePrefix: true,
		}}
	default:
		chain.Authenticators = []auth.Authenticator{&noop.Authenticator{}}
		chain.DefaultDecision = auth.Yes
	}

	limiter := auth.NewTokenBucketLimiter(map[string]auth.TierConfig{
		auth.DefaultTier: {
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
		auth.FileMetadataTier: {
			RequestsPerSecond: cfg.RateLimit.FileMetadataRequestsPerSecond,
		},
	}, auth.RouteTier)

	bypass := cfg.BypassEndpoints
	if len(bypass) == 0 {
		bypass = auth.DefaultBypassEndpoints
	}
	return auth.Middleware(chain, limiter, bypass)
}

func rateLimitLabel(rps float64) string {
	if rps <= 0 {
		return "unlimited"
	}
	return strconv.FormatFloat(rps, 'f', -1, 64) + " requests per second"
}

// version reports SKILLBRIDGE_VERSION when set by the image build.
func version() string {
	if v := strings.TrimSpace(os.Getenv("SKILLBRIDGE_VERSION")); v != "" {
		return v
	}
	return transporthttp.DefaultConfig().Version
}
