package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/ngoboard/internal/auth"
	"github.com/rpggio/ngoboard/internal/config"
	"github.com/rpggio/ngoboard/internal/domain/activity"
	"github.com/rpggio/ngoboard/internal/domain/project"
	"github.com/rpggio/ngoboard/internal/domain/report"
	"github.com/rpggio/ngoboard/internal/mcp"
	"github.com/rpggio/ngoboard/internal/payment"
	"github.com/rpggio/ngoboard/internal/repository"
	"github.com/rpggio/ngoboard/internal/sqlite"
	"github.com/rpggio/ngoboard/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog := newLogger(cfg)
	defer closeLog()

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	apiKeys := sqlite.NewAPIKeyRepository(db)

	if len(os.Args) > 1 && os.Args[1] == "addkey" {
		if err := addKey(context.Background(), apiKeys, os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "addkey: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ceiling, err := cfg.Payment.Ceiling()
	if err != nil {
		logger.Error("invalid payment configuration", "error", err)
		os.Exit(1)
	}

	catalog := report.DefaultDerivedCatalog()
	if cfg.Reporting.DerivedFieldsPath != "" {
		catalog, err = report.LoadDerivedCatalog(cfg.Reporting.DerivedFieldsPath)
		if err != nil {
			logger.Error("failed to load derived fields", "path", cfg.Reporting.DerivedFieldsPath, "error", err)
			os.Exit(1)
		}
	}

	projectRepo := sqlite.NewProjectRepository(db)
	reportRepo := sqlite.NewReportRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)

	provider := payment.NewSandbox(cfg.Payment.Currency, ceiling, logger)
	projectSvc := project.NewService(projectRepo, reportRepo, activityRepo, provider, logger)
	reportSvc := report.NewService(reportRepo, projectSvc, activityRepo, catalog, report.ReportingPolicy(cfg.Reporting.Policy), logger)
	activitySvc := activity.NewService(activityRepo, logger)

	handler := mcp.NewHandler(projectSvc, reportSvc, activitySvc)
	defaultIdentity := auth.Identity{OrgID: cfg.Auth.DefaultOrg, Role: auth.Role(cfg.Auth.DefaultRole)}

	mcpServer := mcp.NewServer(mcp.Config{
		Handler:         handler,
		Resolver:        apiKeys,
		AuthEnabled:     cfg.Auth.Enabled,
		TransportMode:   cfg.Transport.Mode,
		DefaultIdentity: defaultIdentity,
		Logger:          logger,
	})

	// Branch based on transport mode
	if cfg.Transport.Mode == "stdio" {
		runStdioMode(logger, mcpServer)
		return
	}

	authMiddleware := transport.AuthMiddleware(apiKeys)
	if !cfg.Auth.Enabled {
		authMiddleware = transport.StaticIdentity(defaultIdentity)
	}
	router := transport.NewServer(transport.Config{
		Handler:        handler,
		Projects:       projectSvc,
		Reports:        reportSvc,
		AuthMiddleware: authMiddleware,
		Logger:         logger,
	})
	runHTTPMode(logger, mcpServer, router, cfg.Server.Host, cfg.Server.Port)
}

// newLogger writes to stderr, keeping stdout clean for stdio JSON-RPC, and
// additionally to a rotated file when log.path is set.
func newLogger(cfg config.Config) (*slog.Logger, func()) {
	var w io.Writer = os.Stderr
	closeFn := func() {}

	if cfg.Log.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.Path), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			rotator := &lumberjack.Logger{
				Filename:   cfg.Log.Path,
				MaxSize:    cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
			}
			w = io.MultiWriter(os.Stderr, rotator)
			closeFn = func() { _ = rotator.Close() }
		}
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	return logger, closeFn
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func runHTTPMode(logger *slog.Logger, mcpServer *sdkmcp.Server, router http.Handler, host string, port int) {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			SessionTimeout: 30 * time.Minute,
		},
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHandler)
	mux.Handle("/mcp/", mcpHandler)
	mux.Handle("/", router)

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

// addKey registers a new API key and prints the token once.
func addKey(ctx context.Context, keys *sqlite.APIKeyRepository, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("addkey", flag.ContinueOnError)
	role := fs.String("role", string(auth.RoleOrganization), "admin or organization")
	org := fs.String("org", "", "organization id (required for organization keys)")
	description := fs.String("description", "", "free-text note stored with the key")
	token := fs.String("token", "", "use this token instead of generating one")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *token == "" {
		*token = "ngo_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	id := auth.Identity{OrgID: *org, Role: auth.Role(*role)}
	if err := keys.Add(ctx, *token, id, *description); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("token already registered")
		}
		return err
	}
	_, err := fmt.Fprintln(out, *token)
	return err
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
