package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/lox/pokeretl/internal/applog"
	"github.com/lox/pokeretl/internal/config"
	"github.com/lox/pokeretl/internal/query"
	"github.com/lox/pokeretl/internal/rawstore"
)

// CLI is the query/health HTTP server's command surface.
type CLI struct {
	Config   string `help:"Path to config.txt." default:"config.txt"`
	DB       string `help:"Database connection string, overrides DATABASE_URL."`
	Addr     string `help:"Listen address, overrides config.txt QUERY_ADDR."`
	LogLevel string `help:"Log level." enum:"debug,info,warn,error" default:"info"`
	LogFile  string `help:"Log file path." default:"query.log"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("pokeretl-query"),
		kong.Description("Read-only query and health HTTP server"),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cli.DB != "" {
		cfg.DatabaseURL = cli.DB
	}
	if cli.Addr != "" {
		cfg.QueryAddr = cli.Addr
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "config: DATABASE_URL not set")
		os.Exit(1)
	}

	logger, closeLog, err := applog.New(cli.LogFile, cli.LogLevel, "query")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A raw pool suffices here: the query layer only ever reads, so it
	// reuses rawstore.Connect's pgxpool.New + Ping dance rather than
	// opening a second connection helper.
	store, err := rawstore.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect database", "error", err)
		kctx.Exit(1)
	}
	defer store.Close()

	hub := query.NewHub()
	go hub.Run()

	handler := query.NewHandler(query.New(store.Pool()), hub)
	router := handler.SetupRouter()

	srv := &http.Server{
		Addr:    cfg.QueryAddr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("query server starting", "addr", cfg.QueryAddr)
		serverErr <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("query server failed", "error", err)
			kctx.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}
}
