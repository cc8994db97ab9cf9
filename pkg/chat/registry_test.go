package chat

import (
	"slices"
	"testing"
)

func TestRegisterAndResolve(t *testing.T) {
	registry := NewRegistry()
	provider := &fakeProvider{name: "Telegram", kind: KindChat}

	if err := registry.Register(provider); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	// Canonical name and normalized alias both resolve.
	for _, identifier := range []string{"Telegram", "telegram", " TELEGRAM "} {
		resolved, err := registry.Resolve(identifier)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", identifier, err)
		}
		if resolved != provider {
			t.Fatalf("Resolve(%q) returned a different provider", identifier)
		}
	}
}

func TestResolveUnknownProvider(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Resolve("slack")
	if err == nil {
		t.Fatal("expected error for unregistered provider")
	}
	if got := CategoryFromError(err); got != ErrorUnknownProvider {
		t.Fatalf("category = %q, want %q", got, ErrorUnknownProvider)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(&fakeProvider{name: "telegram", kind: KindChat}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := registry.Register(&fakeProvider{name: "Telegram", kind: KindChat}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestNamesExcludesIntegrations(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(&fakeProvider{name: "telegram", kind: KindChat}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := registry.Register(&fakeProvider{name: "webhook", kind: KindIntegration}); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	names := registry.Names()
	if !slices.Equal(names, []string{"telegram"}) {
		t.Fatalf("Names = %v, want [telegram]", names)
	}
}

func TestIsChatProvider(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(&fakeProvider{name: "telegram", kind: KindChat}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := registry.Register(&fakeProvider{name: "webhook", kind: KindIntegration}); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if !registry.IsChatProvider("telegram") {
		t.Fatal("telegram should be a chat provider")
	}
	if registry.IsChatProvider("webhook") {
		t.Fatal("webhook is the non-chat integration")
	}
	// Unregistered names default to chat.
	if !registry.IsChatProvider("slack") {
		t.Fatal("unregistered names count as chat providers")
	}
}
