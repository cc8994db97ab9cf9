package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chatrelay/pkg/bus"
	"chatrelay/pkg/cache"
	"chatrelay/pkg/chat"
	"chatrelay/pkg/chat/telegram"
	"chatrelay/pkg/chat/webhook"
	"chatrelay/pkg/config"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/pipeline"

	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the chat router",
	Long:  "Runs the ChatRelay router with all configured providers and status endpoints.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			fmt.Printf("invalid config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.relay")

		registry, err := buildRegistry(cfg, appLogger)
		if err != nil {
			log.Error("Provider startup failed", "error", err)
			return
		}

		messageBus := bus.NewMessageBus()
		defer messageBus.Close()

		queue := pipeline.NewQueue(0)
		defer queue.Close()

		router, err := chat.NewRouter(chat.RouterConfig{
			Host:           cfg.Relay.Host,
			Port:           cfg.Relay.Port,
			RequestTimeout: cfg.Relay.RequestTimeout(),
			CacheTTL:       cfg.Relay.CacheTTL(),
			Detector: chat.Detector{
				Prefix:         cfg.Relay.Prefix(),
				PrefixEnabled:  cfg.Relay.PrefixCommandsEnabled(),
				DefaultBotName: cfg.Relay.BotName,
			},
		}, registry, messageBus, cache.NewManager(), queue, appLogger)
		if err != nil {
			log.Error("Failed to initialize router", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// The execution engine is an external subsystem; this binary only
		// witnesses the handoff.
		go drainPipeline(runCtx, queue, appLogger)

		log.Info("Relay started", "providers", strings.Join(registry.Names(), ","), "prefix", cfg.Relay.Prefix())
		if err := router.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Relay runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)
}

// buildRegistry starts every enabled provider sequentially and fail-fast:
// one provider failing to start aborts the whole relay with no partial
// registry left behind.
func buildRegistry(cfg *config.Config, log *slog.Logger) (*chat.Registry, error) {
	registry := chat.NewRegistry()

	if cfg.Providers.Telegram.Enabled {
		provider, err := telegram.New(cfg.Providers.Telegram, log)
		if err != nil {
			return nil, fmt.Errorf("start telegram provider: %w", err)
		}
		if err := registry.Register(provider); err != nil {
			return nil, err
		}
	}

	if cfg.Providers.Webhook.Enabled {
		provider, err := webhook.New(cfg.Providers.Webhook, log)
		if err != nil {
			return nil, fmt.Errorf("start webhook provider: %w", err)
		}
		if err := registry.Register(provider); err != nil {
			return nil, err
		}
	}

	if registry.Len() == 0 {
		return nil, errors.New("no providers are enabled")
	}

	return registry, nil
}

func drainPipeline(ctx context.Context, queue *pipeline.Queue, log *slog.Logger) {
	drainLog := log.With("component", "cmd.pipeline")
	for {
		select {
		case <-ctx.Done():
			return
		case request := <-queue.Requests():
			drainLog.Info("Pipeline request accepted",
				"provider", request.Provider,
				"message_id", request.ID,
				"sender", request.Sender.Handle,
			)
		}
	}
}
