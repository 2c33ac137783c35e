package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brightsphere/ai-gateway/config"
	"github.com/brightsphere/ai-gateway/gateway"
	"github.com/brightsphere/ai-gateway/interactions"
	"github.com/brightsphere/ai-gateway/rate_limit"
	"github.com/brightsphere/ai-gateway/rate_limit/backends/memory"
	"github.com/brightsphere/ai-gateway/rate_limit/backends/uds"
	"github.com/brightsphere/ai-gateway/server"
	"github.com/brightsphere/ai-gateway/utils/logger"
	"github.com/brightsphere/ai-gateway/utils/token_counter"
	"github.com/brightsphere/ai-gateway/videos"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	// The uds backend spawns "<self> rate-limiter" when no manager is running
	if len(os.Args) > 1 && os.Args[1] == "rate-limiter" {
		if err := runRateLimiter(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "rate-limiter: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

func runRateLimiter(args []string) error {
	flags := pflag.NewFlagSet("rate-limiter", pflag.ContinueOnError)
	socketPath := flags.String("socket", uds.DefaultSocketPath, "unix socket the manager listens on")
	if err := flags.Parse(args); err != nil {
		return err
	}

	lg := logger.NewStdoutLogger()
	defer lg.Close()

	return uds.RunServer(*socketPath, lg)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	lg, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer lg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := gateway.BuildRegistry(ctx, cfg.Providers, lg)
	defer registry.Close()

	statsInterval := time.Duration(0)
	if !cfg.IsProduction() {
		statsInterval = time.Minute
	}
	orchestrator := gateway.NewOrchestrator(registry, gateway.Options{
		ProviderTimeout:  cfg.Providers.Timeout,
		Logger:           lg,
		StatsLogInterval: statsInterval,
	})
	defer orchestrator.Close()

	limiter := rate_limit.NewLimiter(newRateLimitBackend(ctx, cfg, lg), cfg.RateLimit.Requests, cfg.RateLimit.Window,
		rate_limit.WithLogger(lg))
	defer limiter.Close()

	store := newStore(cfg, lg)
	defer store.Close()

	recorder := interactions.NewRecorder(store, interactions.RecorderConfig{
		Workers:      cfg.Recorder.Workers,
		QueueSize:    cfg.Recorder.QueueSize,
		Logger:       lg,
		TokenCounter: newTokenCounter(lg),
	})
	defer recorder.Close()

	var searcher videos.Searcher
	if cfg.YouTubeAPIKey != "" {
		yt, err := videos.NewYouTubeSearcher(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			lg.Errorf("Video search disabled: %v", err)
		} else {
			searcher = yt
		}
	} else {
		lg.Warnf("No YOUTUBE_API_KEY configured, video search disabled")
	}

	srv := server.New(server.Config{
		Orchestrator:    orchestrator,
		Limiter:         limiter,
		Recorder:        recorder,
		Videos:          searcher,
		Logger:          lg,
		JWTSecret:       cfg.JWTSecret,
		EnableEventFeed: true,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Listen(cfg.Address())
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Println("Shutting down gracefully...")
		return srv.Shutdown()
	})

	return g.Wait()
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	stdout := logger.NewStdoutLogger()
	if cfg.LogFile == "" {
		return stdout, nil
	}

	file, err := logger.NewFileLogger(cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logger.NewMultiLogger(stdout, file), nil
}

func newRateLimitBackend(ctx context.Context, cfg *config.Config, lg logger.Logger) rate_limit.Backend {
	if cfg.RateLimit.Backend == config.BackendUDS {
		return uds.NewClient(uds.ClientConfig{
			SocketPath: cfg.RateLimit.SocketPath,
			Spawn:      true,
			Logger:     lg,
		})
	}

	backend := memory.NewBackend()
	go func() {
		ticker := time.NewTicker(cfg.RateLimit.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if removed := backend.Sweep(now, cfg.RateLimit.Window); removed > 0 {
					lg.Printf("Rate limiter swept %d expired windows", removed)
				}
			}
		}
	}()
	return backend
}

func newStore(cfg *config.Config, lg logger.Logger) interactions.Store {
	if cfg.Database.URL == "" {
		lg.Warnf("No DATABASE_URL configured, interactions will not be persisted")
		return interactions.NoopStore{}
	}

	store, err := interactions.NewPostgresStore(interactions.PostgresConfig{
		DSN:         cfg.Database.URL,
		AutoMigrate: cfg.Database.AutoMigrate,
		Logger:      lg,
	})
	if err != nil {
		lg.Errorf("Interaction persistence disabled: %v", err)
		return interactions.NoopStore{}
	}
	return store
}

func newTokenCounter(lg logger.Logger) token_counter.TokenCounterInterface {
	counter, err := token_counter.NewTokenCounter()
	if err != nil {
		lg.Warnf("Falling back to estimated token counts: %v", err)
		return token_counter.NewEstimatingCounter()
	}
	return counter
}
