package cmd

import (
	"slices"
	"testing"

	"chatrelay/pkg/config"
)

func TestBuildRegistryRequiresAtLeastOneProvider(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	if _, err := buildRegistry(cfg, nil); err == nil {
		t.Fatal("expected error when no providers are enabled")
	}
}

func TestBuildRegistryWebhookOnly(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Providers: config.ProvidersConfig{
			Webhook: config.WebhookConfig{Enabled: true, Port: 18795},
		},
	}

	registry, err := buildRegistry(cfg, nil)
	if err != nil {
		t.Fatalf("buildRegistry error: %v", err)
	}

	if _, err := registry.Resolve("webhook"); err != nil {
		t.Fatalf("Resolve(webhook) error: %v", err)
	}
	// The webhook is a non-chat integration, so the public listing stays empty.
	if names := registry.Names(); len(names) != 0 {
		t.Fatalf("Names = %v, want empty", names)
	}
}

func TestBuildRegistryFailsFastOnBadProvider(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Providers: config.ProvidersConfig{
			Telegram: config.TelegramConfig{Enabled: true, Token: "  "},
			Webhook:  config.WebhookConfig{Enabled: true, Port: 18795},
		},
	}

	if _, err := buildRegistry(cfg, nil); err == nil {
		t.Fatal("expected telegram startup failure to abort registry construction")
	}
}

func TestEnabledProviderNames(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Providers: config.ProvidersConfig{
			Telegram: config.TelegramConfig{Enabled: true, Token: "token"},
			Webhook:  config.WebhookConfig{Enabled: true, Port: 18795},
		},
	}

	if got := enabledProviderNames(cfg); !slices.Equal(got, []string{"telegram", "webhook"}) {
		t.Fatalf("enabledProviderNames = %v, want [telegram webhook]", got)
	}

	if got := enabledProviderNames(&config.Config{}); len(got) != 0 {
		t.Fatalf("enabledProviderNames = %v, want empty", got)
	}
}
