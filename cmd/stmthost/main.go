package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/stmtbatch/audit"
	"github.com/tomyedwab/stmtbatch/config"
	"github.com/tomyedwab/stmtbatch/database"
	"github.com/tomyedwab/stmtbatch/sqlproxy/host"
	"github.com/tomyedwab/stmtbatch/sqlproxy/httpapi"
	"github.com/tomyedwab/stmtbatch/statements"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML config file")
	issueToken := flag.String("issue-token", "", "Print an access token for the named client and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of tokens printed by -issue-token")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if *issueToken != "" {
		if cfg.JWTSecret == "" {
			logger.Error("Cannot issue a token without jwt_secret")
			os.Exit(1)
		}
		token, err := httpapi.IssueToken([]byte(cfg.JWTSecret), *issueToken, *tokenTTL)
		if err != nil {
			logger.Error("Failed to issue token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	db, err := database.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.Setup(ctx, cfg.Schema...); err != nil {
		logger.Error("Failed to apply schema", "error", err)
		os.Exit(1)
	}

	sinkFor := func(sessionID string) statements.ErrorSink {
		return statements.SlogSink(logger.With("session_id", sessionID))
	}
	if cfg.Audit {
		auditLogger, err := audit.NewLogger(db.GetDB())
		if err != nil {
			logger.Error("Failed to create audit logger", "error", err)
			os.Exit(1)
		}
		sinkFor = func(sessionID string) statements.ErrorSink {
			return statements.MultiSink(
				statements.SlogSink(logger.With("session_id", sessionID)),
				auditLogger.Sink(sessionID),
			)
		}
	}

	sqlHost := host.NewSQLHost(db, sinkFor)
	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: httpapi.NewRouter(sqlHost, []byte(cfg.JWTSecret)),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received signal, initiating graceful shutdown...", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", "error", err)
		}
	}()

	logger.Info("Starting statement host", "address", cfg.Listen, "driver", cfg.Driver, "auth", cfg.JWTSecret != "")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server failed", "error", err)
	}

	// Abandoned sessions are released without flushing their pending work.
	sqlHost.Shutdown(ctx)
	logger.Info("Statement host stopped")
}
