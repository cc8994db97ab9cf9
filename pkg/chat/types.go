package chat

// User is the canonical user record resolved through a provider.
type User struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// Room is the canonical room record resolved through a provider.
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	IsDM bool   `json:"is_dm,omitempty"`
}

// RoomQuery selects a room either by canonical id or by display name.
//
// Exactly one form should be set; a query with neither is a programmer error
// and the router fails fast on it.
type RoomQuery struct {
	ID   string
	Name string
}

// Message is the decoded shape of one inbound chat message envelope.
//
// Messages are transient: decoded per bus delivery, classified, and dropped.
type Message struct {
	ID             string         `json:"id"`
	Provider       string         `json:"provider"`
	Room           Room           `json:"room"`
	User           User           `json:"user"`
	Text           string         `json:"text"`
	BotName        string         `json:"bot_name,omitempty"`
	InitialContext map[string]any `json:"initial_context,omitempty"`
}

// Event is the decoded shape of one inbound provider event envelope.
type Event struct {
	Kind     string `json:"event"`
	Provider string `json:"provider"`
	User     string `json:"user,omitempty"`
}

// PipelineRequest is the unit of work handed to the external pipeline
// subsystem for one detected command. Ownership transfers on submit; the
// router never awaits the outcome.
type PipelineRequest struct {
	ID             string         `json:"id"`
	Text           string         `json:"text"`
	Provider       string         `json:"provider"`
	Sender         User           `json:"sender"`
	Room           Room           `json:"room"`
	Reply          string         `json:"reply"`
	InitialContext map[string]any `json:"initial_context"`
}
