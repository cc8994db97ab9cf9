package bus

import "encoding/json"

// Topic names the two inbound streams delivered to the router.
type Topic string

const (
	// TopicMessages carries inbound chat messages from providers.
	TopicMessages Topic = "messages"
	// TopicEvents carries provider lifecycle and presence events.
	TopicEvents Topic = "events"
)

// Envelope is one bus delivery: which provider produced it and its raw payload.
//
// Payloads stay encoded until the router decodes them; a malformed payload is
// the router's problem to log and drop, never the bus's problem to reject.
type Envelope struct {
	Provider string          `json:"provider"`
	Payload  json.RawMessage `json:"payload"`
}
