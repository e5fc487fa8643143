package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ledgerchat/channelengine/internal/adminapi"
	"github.com/ledgerchat/channelengine/internal/audit"
	"github.com/ledgerchat/channelengine/internal/channel"
	"github.com/ledgerchat/channelengine/internal/cipher"
	"github.com/ledgerchat/channelengine/internal/config"
	"github.com/ledgerchat/channelengine/internal/debug"
	"github.com/ledgerchat/channelengine/internal/group"
	"github.com/ledgerchat/channelengine/internal/keyvault"
	"github.com/ledgerchat/channelengine/internal/ledgerstore"
	"github.com/ledgerchat/channelengine/internal/ledgerstore/redisledger"
	"github.com/ledgerchat/channelengine/internal/ledgerstore/s3ledger"
	"github.com/ledgerchat/channelengine/internal/metrics"
	"github.com/ledgerchat/channelengine/internal/middleware"
	"github.com/ledgerchat/channelengine/internal/telemetry"
	"github.com/ledgerchat/channelengine/internal/tracing"
)

func main() {
	var (
		configPath = flag.String("config", "channeld.yaml", "Path to YAML config file")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		debug.InitFromLogLevel("debug")
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	watcher, err := config.WatchFile(*configPath, func(err error) {
		logger.WithError(err).Error("failed to reload config")
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}
	defer watcher.Close()
	cfg := watcher.Current()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracer, shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		logger.WithError(err).Fatal("failed to set up tracing")
	}
	defer shutdownTracing(ctx)

	m := metrics.NewMetrics()
	m.StartSystemMetricsCollector()

	keyManager, err := buildKeyManager(cfg.KeyManager)
	if err != nil {
		logger.WithError(err).Fatal("failed to build key manager")
	}
	defer keyManager.Close(ctx)

	vault, err := keyvault.Open(cfg.VaultPath, keyManager)
	if err != nil {
		logger.WithError(err).Fatal("failed to open key vault")
	}
	defer vault.Close(ctx)

	auditLogger, err := audit.NewLoggerFromConfig(cfg.Audit)
	if err != nil {
		logger.WithError(err).Fatal("failed to build audit logger")
	}
	defer auditLogger.Close()

	ledger, backendName, err := buildLedgerStore(ctx, cfg.Ledger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build ledger store")
	}
	instrumentedLedger := telemetry.WrapStore(ledger, backendName, tracer, m)

	groups := make(map[string]*group.Group)
	var groupsMu sync.RWMutex

	for _, chCfg := range cfg.Channels {
		g, err := buildGroup(ctx, chCfg, instrumentedLedger, vault, cfg.Cipher, m, auditLogger)
		if err != nil {
			logger.WithError(err).WithField("channel", chCfg.Label).Fatal("failed to build channel group")
		}
		groupsMu.Lock()
		groups[chCfg.Label] = g
		groupsMu.Unlock()
		logger.WithField("channel", chCfg.Label).Info("channel group ready")
	}

	lookup := func(label string) (*group.Group, bool) {
		groupsMu.RLock()
		defer groupsMu.RUnlock()
		g, ok := groups[label]
		return g, ok
	}

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	handler := adminapi.NewHandler(lookup, logger, m, func(r *http.Request) error {
		return keyManager.HealthCheck(r.Context())
	})
	handler.RegisterRoutes(router)

	listenAddr := cfg.AdminAPI.ListenAddr
	if listenAddr == "" {
		listenAddr = ":9090"
	}
	server := &http.Server{Addr: listenAddr, Handler: router}

	go func() {
		logger.WithField("addr", listenAddr).Info("admin API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("admin API server stopped")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}

func buildKeyManager(cfg config.KeyManagerConfig) (keyvault.KeyManager, error) {
	switch cfg.Provider {
	case "", "transparent":
		return keyvault.NewTransparent(), nil
	case "kmip":
		keys := make([]keyvault.KeyReference, len(cfg.KMIP.Keys))
		for i, k := range cfg.KMIP.Keys {
			keys[i] = keyvault.KeyReference{ID: k.ID, Version: k.Version}
		}
		timeout := time.Duration(cfg.KMIP.TimeoutSeconds) * time.Second
		return keyvault.NewKMIPManager(keyvault.KMIPOptions{
			Endpoint: cfg.KMIP.Endpoint,
			Keys:     keys,
			Timeout:  timeout,
		})
	default:
		return nil, fmt.Errorf("unknown key manager provider %q", cfg.Provider)
	}
}

func buildLedgerStore(ctx context.Context, cfg config.LedgerConfig) (ledgerstore.Store, string, error) {
	switch cfg.Backend {
	case config.LedgerBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return redisledger.New(client), "redis", nil
	case config.LedgerBackendS3:
		store, err := s3ledger.New(ctx, s3ledger.Config{
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Endpoint:  cfg.S3.Endpoint,
			Provider:  cfg.S3.Provider,
			Bucket:    cfg.S3.Bucket,
		})
		return store, "s3", err
	default:
		return nil, "", fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

func buildGroup(ctx context.Context, chCfg config.ChannelConfig, ledger ledgerstore.Store, vault *keyvault.Vault, cipherCfg config.CipherConfig, m *metrics.Metrics, auditLogger audit.Logger) (*group.Group, error) {
	members, err := parseMembers(chCfg.Members)
	if err != nil {
		return nil, fmt.Errorf("channel %q: %w", chCfg.Label, err)
	}
	if chCfg.SelfIndex < 0 || chCfg.SelfIndex >= len(members) {
		return nil, fmt.Errorf("channel %q: self_index %d out of range", chCfg.Label, chCfg.SelfIndex)
	}
	self := members[chCfg.SelfIndex]
	others := make([]channel.CorrespondentID, 0, len(members)-1)
	for i, id := range members {
		if i != chCfg.SelfIndex {
			others = append(others, id)
		}
	}

	secret, err := vault.ChannelSecret(ctx, chCfg.Label)
	if err != nil {
		return nil, fmt.Errorf("channel %q: %w", chCfg.Label, err)
	}

	aead, err := cipher.Select(secret, cipher.HardwareConfig{
		EnableAESNI:    cipherCfg.EnableAESNI,
		EnableARMv8AES: cipherCfg.EnableARMv8AES,
	})
	if err != nil {
		return nil, fmt.Errorf("channel %q: select cipher: %w", chCfg.Label, err)
	}

	observer := &telemetry.Observer{ChannelID: chCfg.Label, Metrics: m, Audit: auditLogger}

	g, err := group.New(group.Config{
		Ledger:       ledger,
		Cipher:       aead,
		SelfID:       self,
		Others:       others,
		SharedSecret: secret,
		Context:      []byte(chCfg.Context),
		Observer:     observer,
	})
	if err != nil {
		return nil, fmt.Errorf("channel %q: %w", chCfg.Label, err)
	}

	if err := g.Resync(ctx); err != nil {
		return nil, fmt.Errorf("channel %q: resync cursors after cold start: %w", chCfg.Label, err)
	}

	return g, nil
}

func parseMembers(hexIDs []string) ([]channel.CorrespondentID, error) {
	ids := make([]channel.CorrespondentID, len(hexIDs))
	for i, h := range hexIDs {
		raw, err := hex.DecodeString(h)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		if len(raw) != 32 {
			return nil, fmt.Errorf("member %d: want 32 bytes, got %d", i, len(raw))
		}
		copy(ids[i][:], raw)
	}
	return ids, nil
}
