package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aro-lang/aro/internal/runtime/engine"
	"github.com/aro-lang/aro/internal/runtime/spillhash"
	"github.com/aro-lang/aro/internal/web/auth"
	"github.com/aro-lang/aro/internal/web/cache"
	"github.com/aro-lang/aro/internal/web/gateway"
)

type serveConfig struct {
	addr        string
	signingKey  string
	tokenTTL    time.Duration
	redisAddr   string
	spillDir    string
	issueToken  bool
	tokenUser   string
	tokenEmail  string
	tokenRoles  []string
	keyStateDir string
}

func newServeCmd() *cobra.Command {
	cfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the compilation and pipeline gateway",
		Long: `serve starts the HTTP/WebSocket gateway that compiles ARO source
and runs streaming pipelines over it.

Pass --issue-token to mint a bearer JWT against the configured signing
key instead of starting the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.issueToken {
				return runIssueToken(cfg)
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&cfg.signingKey, "signing-key", os.Getenv("ARO_SIGNING_KEY"), "JWT signing key (defaults to $ARO_SIGNING_KEY)")
	cmd.Flags().DurationVar(&cfg.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of minted bearer tokens")
	cmd.Flags().StringVar(&cfg.redisAddr, "redis-addr", "", "redis address for the spill store and HTTP cache (empty = in-memory/on-disk)")
	cmd.Flags().StringVar(&cfg.spillDir, "spill-dir", os.TempDir(), "directory spillable hash partitions are written under")
	cmd.Flags().StringVar(&cfg.keyStateDir, "key-state-dir", defaultKeyStateDir(), "directory the signing key's bcrypt fingerprint is persisted in")

	cmd.Flags().BoolVar(&cfg.issueToken, "issue-token", false, "mint a bearer token and exit instead of serving")
	cmd.Flags().StringVar(&cfg.tokenUser, "user", "", "user ID to embed in the minted token")
	cmd.Flags().StringVar(&cfg.tokenEmail, "email", "", "email to embed in the minted token")
	cmd.Flags().StringSliceVar(&cfg.tokenRoles, "role", []string{"viewer"}, "roles to embed in the minted token")

	return cmd
}

func defaultKeyStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aro"
	}
	return filepath.Join(home, ".aro")
}

// checkSigningKeyFingerprint persists a bcrypt hash of the signing key on
// first use and verifies subsequent runs against it, so a key rotated
// out from under a long-lived deployment is caught instead of silently
// minting and validating tokens against whatever was passed this time.
func checkSigningKeyFingerprint(dir, key string) error {
	if key == "" {
		return fmt.Errorf("signing key is required (--signing-key or $ARO_SIGNING_KEY)")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating key state dir: %w", err)
	}
	path := filepath.Join(dir, "signing_key.hash")

	existing, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		hash, hashErr := auth.HashPassword(key)
		if hashErr != nil {
			return fmt.Errorf("hashing signing key: %w", hashErr)
		}
		return os.WriteFile(path, []byte(hash), 0o600)
	}
	if err != nil {
		return fmt.Errorf("reading signing key fingerprint: %w", err)
	}

	if !auth.CheckPassword(key, strings.TrimSpace(string(existing))) {
		return fmt.Errorf("signing key does not match the fingerprint recorded at %s", path)
	}
	return nil
}

func runIssueToken(cfg *serveConfig) error {
	if err := checkSigningKeyFingerprint(cfg.keyStateDir, cfg.signingKey); err != nil {
		return err
	}
	if cfg.tokenUser == "" {
		return fmt.Errorf("--user is required with --issue-token")
	}

	authSvc := auth.NewAuthService(cfg.signingKey, cfg.tokenTTL)
	token, err := authSvc.GenerateToken(cfg.tokenUser, cfg.tokenEmail, cfg.tokenRoles)
	if err != nil {
		return fmt.Errorf("minting token: %w", err)
	}
	fmt.Println(token)
	return nil
}

func runServe(ctx context.Context, cfg *serveConfig) error {
	if err := checkSigningKeyFingerprint(cfg.keyStateDir, cfg.signingKey); err != nil {
		return err
	}

	log := logger
	if log == nil {
		log = zap.NewNop()
	}

	store, closeStore, err := buildSpillStore(cfg)
	if err != nil {
		return fmt.Errorf("configuring spill store: %w", err)
	}
	defer closeStore()

	httpCache := cache.Cache(cache.NewMemoryCache())
	if cfg.redisAddr != "" {
		httpCache = cache.NewRedisCacheWithClient(
			redis.NewClient(&redis.Options{Addr: cfg.redisAddr}),
			cache.DefaultCacheConfig(),
		)
	}

	srv := gateway.New(gateway.Config{
		Engine: engine.New(store),
		Auth:   auth.NewAuthService(cfg.signingKey, cfg.tokenTTL),
		Logger: log,
		Cache:  httpCache,
	})

	httpServer := &http.Server{Addr: cfg.addr, Handler: srv}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
		cancel()
	}()

	log.Info("gateway listening", zap.String("addr", cfg.addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	<-runCtx.Done()
	return nil
}

func buildSpillStore(cfg *serveConfig) (spillhash.Store, func(), error) {
	if cfg.redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.redisAddr})
		store := spillhash.NewRedisStore(client, "aro:spill:")
		return store, func() { _ = client.Close() }, nil
	}

	store, err := spillhash.NewDiskStore(cfg.spillDir, true)
	if err != nil {
		return nil, func() {}, err
	}
	return store, func() { _ = store.Close() }, nil
}
