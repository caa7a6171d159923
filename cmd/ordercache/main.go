package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"order_cache/internal/api"
	"order_cache/internal/app"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the yaml configuration")
	scriptPath := flag.String("script", "", "replay an order script and exit (\"-\" reads stdin)")
	pprofAddr := flag.String("pprof", "", "serve pprof on this address, e.g. localhost:6060")
	flag.Parse()

	// 1. Pprof Server (for performance profiling)
	if *pprofAddr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", *pprofAddr))
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Script replay mode
	if *scriptPath != "" {
		if err := replay(ctx, bootstrap, *scriptPath); err != nil {
			slog.Error("❌ Script replay failed", slog.Any("error", err))
			bootstrap.Close()
			os.Exit(1)
		}
		return
	}

	// 5. Serve mode
	bootstrap.StartBackground(ctx)
	server := api.NewServer(bootstrap.Service, bootstrap.Config.API.AllowedOrigins)

	slog.InfoContext(ctx, "✨ Order cache fully operational. Press Ctrl+C to exit.")
	if err := server.Start(ctx, bootstrap.Config.API.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("API server failed", slog.Any("error", err))
		bootstrap.Close()
		os.Exit(1)
	}

	slog.Info("👋 Shutting down gracefully...")
}

func replay(ctx context.Context, b *app.Bootstrap, path string) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	return b.ReplayScript(ctx, r, os.Stdout)
}
