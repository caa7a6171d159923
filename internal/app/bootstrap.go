package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"order_cache/internal/cache"
	"order_cache/internal/domain"
	"order_cache/internal/engine"
	"order_cache/internal/event"
	"order_cache/internal/infra"
	"order_cache/internal/infra/storage"
	"order_cache/internal/script"
	"order_cache/internal/service"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage // nil when the journal is disabled
	Cache   domain.OrderCache
	Service *service.OrderService
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and wires logger, storage, cache and service.
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping order cache...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	return b.InitializeWith(cfg)
}

// InitializeWith wires everything from an already loaded configuration.
func (b *Bootstrap) InitializeWith(cfg *infra.Config) error {
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))

	// 3. Initialize Storage (match journal)
	var repo domain.MatchReportRepository
	if cfg.Storage.Enabled {
		store, err := storage.NewStorage(cfg.Storage.Path)
		if err != nil {
			return err
		}
		b.Storage = store
		repo = store
		slog.Info("✅ Match journal initialized", slog.String("path", cfg.Storage.Path))
	}

	// 4. Build Cache
	strategy, err := cache.ParseStrategy(cfg.Cache.Strategy)
	if err != nil {
		return err
	}
	c, err := cache.New(strategy, cache.Options{PruneFilled: cfg.Cache.PruneFilled})
	if err != nil {
		return err
	}
	b.Cache = c
	slog.Info("✅ Order cache ready",
		slog.String("strategy", string(strategy)),
		slog.Bool("prune_filled", cfg.Cache.PruneFilled))

	// 5. Service
	b.Service = service.NewOrderService(c, repo, infra.GlobalMetrics)
	event.Warmup()

	return nil
}

// StartBackground starts the match journal writer and report retention.
func (b *Bootstrap) StartBackground(ctx context.Context) {
	b.Service.StartJournal(ctx)
	b.Service.StartRetention(ctx, b.Config.Storage.Retention, b.Config.Storage.RetentionInterval)
}

// Close flushes the match journal, then releases storage resources. Safe to call twice.
func (b *Bootstrap) Close() {
	if b.Service != nil {
		b.Service.Close()
	}
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Failed to close storage", slog.Any("error", err))
		}
		b.Storage = nil
	}
}

// ReplayScript parses r and feeds every command through a sequencer over the service,
// writing one line per matching or purge result to out.
func (b *Bootstrap) ReplayScript(ctx context.Context, r io.Reader, out io.Writer) error {
	cmds, err := script.Parse(r)
	if err != nil {
		return err
	}
	slog.Info("🔄 Replaying script", slog.Int("commands", len(cmds)))

	b.StartBackground(ctx)

	seq := engine.NewSequencer(b.Config.Cache.InboxSize, b.Service, func(res event.Result) {
		switch {
		case res.IsMatch():
			fmt.Fprintf(out, "%s %s %d\n", res.Kind, res.SecurityID, res.MatchedQty)
		case res.Kind == event.KindPurge:
			fmt.Fprintf(out, "purge %d\n", res.Purged)
		}
	})
	seq.SetDumpPath(filepath.Join(os.TempDir(), "ordercache_dump.json"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		seq.Run(ctx)
	}()

	inbox := seq.Inbox()
	for i := range cmds {
		cmd := event.AcquireCommand()
		*cmd = cmds[i]
		select {
		case inbox <- cmd:
		case <-ctx.Done():
			event.ReleaseCommand(cmd)
			close(inbox)
			<-done
			return ctx.Err()
		}
	}
	close(inbox)
	<-done

	if err := ctx.Err(); err != nil {
		return err
	}
	slog.Info("✨ Script replay completed", slog.Int("resident", b.Service.Len()))
	return nil
}
