package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-marks/internal/api"
	"github.com/heimdex/heimdex-marks/internal/catalog"
	"github.com/heimdex/heimdex-marks/internal/config"
	"github.com/heimdex/heimdex-marks/internal/db"
	"github.com/heimdex/heimdex-marks/internal/logging"
)

func newServeCmd(verbose *bool) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs, marks and thumbnails over a local HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), port, *verbose)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides "+config.EnvPort+")")
	return cmd
}

func runServe(ctx context.Context, stdout, stderr io.Writer, port int, verbose bool) error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.SetLogLevel("debug")
	}
	if port <= 0 {
		port = cfg.Port()
	}

	logger := logging.WithComponent(logging.NewLoggerTo(stderr, cfg.LogLevel()), "api")
	logger.Info("starting marks api", "version", config.Version, "data_dir", logging.SanitizePath(cfg.DataDir()))

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := catalog.NewRepository(database.Conn())
	authToken, err := ensureAuthToken(ctx, repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Fprintln(stdout, styleBrand.Render("MARKS API")+" "+styleVersion.Render("v"+config.Version))
	printField(stdout, "API URL", fmt.Sprintf("http://127.0.0.1:%d", port))
	printField(stdout, "Auth Token", authToken)

	server := api.NewServer(api.ServerConfig{
		Port:           port,
		ThumbnailDir:   cfg.ThumbnailDir(),
		CatalogService: catalog.NewService(repo, logger),
		Repository:     repo,
		Logger:         logger,
		StartTime:      startTime,
		Version:        config.Version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// ensureAuthToken returns the stored API token, creating one on first use.
func ensureAuthToken(ctx context.Context, repo catalog.Repository) (string, error) {
	existing, err := repo.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}
	return token, nil
}

