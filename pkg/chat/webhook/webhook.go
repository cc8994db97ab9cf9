// Package webhook implements the non-chat HTTP integration: an ingress that
// turns authenticated POSTs into bus deliveries. It registers like any other
// provider but is excluded from the public chat-provider listing.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chatrelay/pkg/bus"
	"chatrelay/pkg/chat"
	"chatrelay/pkg/config"
)

const providerName = "webhook"

const (
	defaultHost     = "0.0.0.0"
	maxPayloadBytes = 1 << 20
)

// Provider accepts chat messages and events over HTTP and publishes their raw
// payloads to the bus. Decoding stays with the router, so a malformed POST
// body exercises the same drop path as any other malformed bus payload.
type Provider struct {
	cfg config.WebhookConfig
	log *slog.Logger
}

// New validates webhook configuration and constructs the provider.
func New(cfg config.WebhookConfig, log *slog.Logger) (*Provider, error) {
	if cfg.Port <= 0 {
		return nil, errors.New("providers.webhook.port is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Provider{
		cfg: cfg,
		log: log.With("component", "chat.webhook"),
	}, nil
}

// Name returns the provider identifier used in registry and bus envelopes.
func (p *Provider) Name() string {
	return providerName
}

// Kind marks the webhook as a non-chat integration.
func (p *Provider) Kind() chat.Kind {
	return chat.KindIntegration
}

func (p *Provider) LookupUser(_ context.Context, _ string) (chat.User, error) {
	return chat.User{}, chat.NotImplementedError(providerName, "lookup user")
}

func (p *Provider) LookupRoom(_ context.Context, _ chat.RoomQuery) (chat.Room, error) {
	return chat.Room{}, chat.NotImplementedError(providerName, "lookup room")
}

func (p *Provider) ListJoinedRooms(_ context.Context) ([]chat.Room, error) {
	return nil, chat.NotImplementedError(providerName, "list joined rooms")
}

func (p *Provider) Join(_ context.Context, _ string) error {
	return chat.NotImplementedError(providerName, "join")
}

func (p *Provider) Leave(_ context.Context, _ string) error {
	return chat.NotImplementedError(providerName, "leave")
}

func (p *Provider) MentionName(_ string) (string, error) {
	return "", chat.NotImplementedError(providerName, "mention name")
}

func (p *Provider) DisplayName() (string, error) {
	return "", chat.NotImplementedError(providerName, "display name")
}

func (p *Provider) SendMessage(_ context.Context, _ string, _ string) error {
	return chat.NotImplementedError(providerName, "send message")
}

// Run serves the ingress endpoints until ctx is canceled.
func (p *Provider) Run(ctx context.Context, mb *bus.MessageBus) error {
	host := strings.TrimSpace(p.cfg.Host)
	if host == "" {
		host = defaultHost
	}

	addr := host + ":" + strconv.Itoa(p.cfg.Port)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/messages", p.ingestHandler(ctx, mb.PublishMessage))
	mux.HandleFunc("/v1/events", p.ingestHandler(ctx, mb.PublishEvent))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	p.log.Info("Webhook ingress started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start webhook ingress: %w", err)
	}

	return nil
}

type publishFunc func(context.Context, bus.Envelope) bool

func (p *Provider) ingestHandler(ctx context.Context, publish publishFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !p.authorized(req) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		payload, err := io.ReadAll(io.LimitReader(req.Body, maxPayloadBytes))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		if len(payload) == 0 {
			http.Error(w, "empty body", http.StatusBadRequest)
			return
		}

		if !publish(ctx, bus.Envelope{Provider: providerName, Payload: payload}) {
			http.Error(w, "relay is shutting down", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

// authorized checks the shared-secret bearer token when one is configured.
func (p *Provider) authorized(req *http.Request) bool {
	token := strings.TrimSpace(p.cfg.Token)
	if token == "" {
		return true
	}

	header := strings.TrimSpace(req.Header.Get("Authorization"))
	return header == "Bearer "+token
}
