package chat

import (
	"context"

	"chatrelay/pkg/bus"
)

// Kind distinguishes chat back-ends from non-chat integrations.
type Kind string

const (
	// KindChat marks a provider backed by a real chat service.
	KindChat Kind = "chat"
	// KindIntegration marks a non-chat provider such as the HTTP webhook
	// integration. Integrations are resolvable but excluded from the public
	// provider listing.
	KindIntegration Kind = "integration"
)

// Provider is the capability contract every chat back-end must satisfy.
//
// A provider that does not support a capability returns a not_implemented
// error from it instead of failing in an unclassified way.
type Provider interface {
	Name() string
	Kind() Kind

	LookupUser(ctx context.Context, handle string) (User, error)
	LookupRoom(ctx context.Context, query RoomQuery) (Room, error)
	ListJoinedRooms(ctx context.Context) ([]Room, error)
	Join(ctx context.Context, roomID string) error
	Leave(ctx context.Context, roomID string) error
	MentionName(handle string) (string, error)
	DisplayName() (string, error)
	SendMessage(ctx context.Context, roomID string, text string) error
}

// Runner is implemented by providers that stream inbound traffic onto the bus.
//
// Run blocks until ctx is canceled or the provider fails fatally.
type Runner interface {
	Run(ctx context.Context, mb *bus.MessageBus) error
}

// PipelineInitializer accepts ownership of one pipeline request per detected
// command. The router submits and never learns the execution outcome.
type PipelineInitializer interface {
	Submit(ctx context.Context, request PipelineRequest) error
}
