package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"chatrelay/pkg/bus"
	"chatrelay/pkg/cache"
)

const (
	defaultStatusHost = "0.0.0.0"
	defaultStatusPort = 18790

	lookupCacheName = "chat_lookups"
)

// RouterConfig carries the router's behavior settings, resolved once at startup.
type RouterConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	CacheTTL       time.Duration
	Detector       Detector
}

// Router is the coordinating process of the relay.
//
// It owns the provider registry and the lookup cache, serves synchronous
// lookup and management calls, dispatches outbound sends, and consumes the
// two inbound bus topics. Bus messages are processed by a single loop in
// delivery order; the registry is immutable after construction and the cache
// serializes its own access, so there is exactly one mutation path for every
// piece of router state.
type Router struct {
	cfg      RouterConfig
	log      *slog.Logger
	registry *Registry
	bus      *bus.MessageBus
	pipeline PipelineInitializer
	lookups  *cache.Store

	mu             sync.RWMutex
	startedAt      time.Time
	providerStates map[string]providerState
}

type providerState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string                   `json:"status"`
	UptimeSeconds int64                    `json:"uptime_seconds"`
	Providers     map[string]providerState `json:"providers"`
}

// NewRouter wires the router against its collaborators.
//
// Construction fails when any collaborator is missing or the registry is
// empty; the relay never comes up with a partial registry.
func NewRouter(cfg RouterConfig, registry *Registry, mb *bus.MessageBus, caches *cache.Manager, initializer PipelineInitializer, log *slog.Logger) (*Router, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, errors.New("at least one registered provider is required")
	}
	if mb == nil {
		return nil, errors.New("message bus is required")
	}
	if caches == nil {
		return nil, errors.New("cache manager is required")
	}
	if initializer == nil {
		return nil, errors.New("pipeline initializer is required")
	}
	if log == nil {
		log = slog.Default()
	}

	providerStates := make(map[string]providerState)
	for _, provider := range registry.All() {
		if _, ok := provider.(Runner); ok {
			providerStates[provider.Name()] = providerState{}
		}
	}

	return &Router{
		cfg:            cfg,
		log:            log.With("component", "chat.router"),
		registry:       registry,
		bus:            mb,
		pipeline:       initializer,
		lookups:        caches.GetOrCreate(lookupCacheName, cfg.CacheTTL),
		providerStates: providerStates,
	}, nil
}

// LookupUser resolves a user handle through the cache, then the provider.
//
// Only successful results are cached; a failed lookup reaches the provider
// again on the next call.
func (r *Router) LookupUser(ctx context.Context, provider string, handle string) (User, error) {
	key := lookupKey(provider, "user", handle)
	if cached, ok := r.lookups.Get(key); ok {
		if user, ok := cached.(User); ok {
			return user, nil
		}
	}

	resolved, err := r.registry.Resolve(provider)
	if err != nil {
		return User{}, err
	}

	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	user, err := resolved.LookupUser(callCtx, handle)
	if err != nil {
		return User{}, boundCallError("lookup user", err)
	}

	r.lookups.Put(key, user)

	return user, nil
}

// LookupRoom resolves a room query through the cache, then the provider.
//
// The cache key varies with the query form, so id and name lookups expire
// independently. A query with neither form set panics: every call site
// constructs the query and an empty one is a programming mistake, not input.
func (r *Router) LookupRoom(ctx context.Context, provider string, query RoomQuery) (Room, error) {
	var key string
	switch {
	case strings.TrimSpace(query.ID) != "":
		key = lookupKey(provider, "room_id", query.ID)
	case strings.TrimSpace(query.Name) != "":
		key = lookupKey(provider, "room_name", query.Name)
	default:
		panic("chat: RoomQuery requires an id or a name")
	}

	if cached, ok := r.lookups.Get(key); ok {
		if room, ok := cached.(Room); ok {
			return room, nil
		}
	}

	resolved, err := r.registry.Resolve(provider)
	if err != nil {
		return Room{}, err
	}

	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	room, err := resolved.LookupRoom(callCtx, query)
	if err != nil {
		return Room{}, boundCallError("lookup room", err)
	}

	r.lookups.Put(key, room)

	return room, nil
}

// ListJoinedRooms delegates directly; membership changes too often to cache.
func (r *Router) ListJoinedRooms(ctx context.Context, provider string) ([]Room, error) {
	resolved, err := r.registry.Resolve(provider)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	rooms, err := resolved.ListJoinedRooms(callCtx)
	if err != nil {
		return nil, boundCallError("list joined rooms", err)
	}

	return rooms, nil
}

// Join delegates a room join to the provider.
func (r *Router) Join(ctx context.Context, provider string, roomID string) error {
	resolved, err := r.registry.Resolve(provider)
	if err != nil {
		return err
	}

	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	if err := resolved.Join(callCtx, roomID); err != nil {
		return boundCallError("join room", err)
	}

	return nil
}

// Leave delegates a room leave to the provider.
func (r *Router) Leave(ctx context.Context, provider string, roomID string) error {
	resolved, err := r.registry.Resolve(provider)
	if err != nil {
		return err
	}

	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	if err := resolved.Leave(callCtx, roomID); err != nil {
		return boundCallError("leave room", err)
	}

	return nil
}

// MentionName delegates mention formatting to the provider.
func (r *Router) MentionName(provider string, handle string) (string, error) {
	resolved, err := r.registry.Resolve(provider)
	if err != nil {
		return "", err
	}

	return resolved.MentionName(handle)
}

// DisplayName delegates bot display-name resolution to the provider.
func (r *Router) DisplayName(provider string) (string, error) {
	resolved, err := r.registry.Resolve(provider)
	if err != nil {
		return "", err
	}

	return resolved.DisplayName()
}

// ListProviders returns the public identifiers of registered chat providers.
func (r *Router) ListProviders() []string {
	return r.registry.Names()
}

// IsChatProvider reports whether name denotes a chat back-end.
func (r *Router) IsChatProvider(name string) bool {
	return r.registry.IsChatProvider(name)
}

// Send resolves target to a canonical room and dispatches text to it.
//
// Target resolution failures are returned synchronously and the send is never
// attempted. Dispatch itself is fire-and-forget: the caller already holds an
// acknowledgment once Send returns nil, so delivery failures are logged, not
// propagated.
func (r *Router) Send(ctx context.Context, provider string, target RoomQuery, text string) error {
	room, err := r.LookupRoom(ctx, provider, target)
	if err != nil {
		return NewError(ErrorDispatch, fmt.Sprintf("resolve send target: %v", err))
	}

	resolved, err := r.registry.Resolve(provider)
	if err != nil {
		return NewError(ErrorDispatch, err.Error())
	}

	go r.dispatch(resolved, room.ID, text)

	return nil
}

func (r *Router) dispatch(provider Provider, roomID string, text string) {
	callCtx, cancel := r.callContext(context.Background())
	defer cancel()

	if err := provider.SendMessage(callCtx, roomID, text); err != nil {
		r.log.Warn("Outbound send failed",
			"provider", provider.Name(),
			"room_id", roomID,
			"category", CategoryFromError(err),
			"error", err,
		)
	}
}

// Run starts the status server and provider runners, then consumes the two
// bus topics until ctx is canceled or a fatal component error occurs.
func (r *Router) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.Lock()
	r.startedAt = time.Now().UTC()
	r.mu.Unlock()

	serverErrors := make(chan error, 1)
	go r.runStatusServer(ctx, serverErrors)

	runnerErrors := make(chan error, r.registry.Len())
	for _, provider := range r.registry.All() {
		runner, ok := provider.(Runner)
		if !ok {
			continue
		}

		name := provider.Name()
		r.setProviderState(name, providerState{Running: true})

		go func() {
			err := runner.Run(ctx, r.bus)
			r.setProviderState(name, providerState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				r.publishProviderFailure(name)
				runnerErrors <- fmt.Errorf("run %s provider: %w", name, err)
			}
		}()
	}

	go r.consumeEvents(ctx)

	messagesDone := make(chan struct{})
	go func() {
		defer close(messagesDone)
		r.consumeMessages(ctx)
	}()

	r.log.Info("Chat router started", "providers", strings.Join(r.registry.Names(), ","))

	select {
	case <-ctx.Done():
		<-messagesDone
		return nil
	case err := <-serverErrors:
		return err
	case err := <-runnerErrors:
		return err
	}
}

// consumeMessages is the single sequential processor of the messages topic.
// Messages are handled one at a time in delivery order.
func (r *Router) consumeMessages(ctx context.Context) {
	for {
		envelope, ok := r.bus.ConsumeMessage(ctx)
		if !ok {
			return
		}
		r.handleMessage(ctx, envelope)
	}
}

func (r *Router) handleMessage(ctx context.Context, envelope bus.Envelope) {
	var message Message
	if err := json.Unmarshal(envelope.Payload, &message); err != nil {
		r.log.Warn("Dropping malformed message payload",
			"provider", envelope.Provider,
			"category", ErrorDecode,
			"error", err,
		)
		return
	}

	provider := message.Provider
	if provider == "" {
		provider = envelope.Provider
	}

	command, addressed := r.cfg.Detector.Detect(message.Text, message.Room.IsDM, message.BotName)
	if !addressed {
		r.log.Debug("Ignoring message not addressed to the bot", "provider", provider, "room", message.Room.ID)
		return
	}
	if strings.TrimSpace(command) == "" {
		r.log.Debug("Dropping addressed message with empty command", "provider", provider, "room", message.Room.ID)
		return
	}

	initialContext := message.InitialContext
	if initialContext == nil {
		initialContext = make(map[string]any)
	}

	request := PipelineRequest{
		ID:             message.ID,
		Text:           command,
		Provider:       provider,
		Sender:         message.User,
		Room:           message.Room,
		Reply:          "",
		InitialContext: initialContext,
	}

	if err := r.pipeline.Submit(ctx, request); err != nil {
		// Bus-triggered work has no caller to report back to.
		r.log.Error("Pipeline submit failed", "provider", provider, "message_id", message.ID, "error", err)
		return
	}

	r.log.Debug("Command handed to pipeline", "provider", provider, "message_id", message.ID)
}

// consumeEvents decodes and logs provider events; events have no side effects.
func (r *Router) consumeEvents(ctx context.Context) {
	for {
		envelope, ok := r.bus.ConsumeEvent(ctx)
		if !ok {
			return
		}

		var event Event
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			r.log.Warn("Dropping malformed event payload",
				"provider", envelope.Provider,
				"category", ErrorDecode,
				"error", err,
			)
			continue
		}

		r.log.Info("Provider event", "event", event.Kind, "provider", event.Provider, "user", event.User)
	}
}

func (r *Router) publishProviderFailure(name string) {
	payload, err := json.Marshal(Event{Kind: "provider_failed", Provider: name})
	if err != nil {
		return
	}
	r.bus.PublishEvent(context.Background(), bus.Envelope{Provider: name, Payload: payload})
}

func (r *Router) runStatusServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(r.cfg.Host)
	if host == "" {
		host = defaultStatusHost
	}

	port := r.cfg.Port
	if port <= 0 {
		port = defaultStatusPort
	}

	addr := host + ":" + strconv.Itoa(port)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)

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

	r.log.Info("Router status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start status server: %w", err)
	}
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	r.respondStatus(w, http.StatusOK, "ok")
}

func (r *Router) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !r.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	r.respondStatus(w, statusCode, status)
}

func (r *Router) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := r.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.log.Error("Failed to write status response", "error", err)
	}
}

func (r *Router) currentStatus(status string) statusResponse {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uptime := int64(0)
	if !r.startedAt.IsZero() {
		uptime = int64(time.Since(r.startedAt).Seconds())
	}

	providers := make(map[string]providerState, len(r.providerStates))
	for name, state := range r.providerStates {
		providers[name] = state
	}

	return statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		Providers:     providers,
	}
}

// isReady requires every streaming provider to be running. Providers without
// a runner have no inbound path and do not gate readiness.
func (r *Router) isReady() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, state := range r.providerStates {
		if !state.Running {
			return false
		}
	}

	return true
}

func (r *Router) setProviderState(name string, state providerState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providerStates[name] = state
}

// callContext bounds one synchronous provider call.
//
// Unbounded waits are deliberately not supported: a zero RequestTimeout means
// the caller's own ctx is the only bound.
func (r *Router) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.cfg.RequestTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, r.cfg.RequestTimeout)
}

// boundCallError surfaces deadline expiry as a stable timeout category.
func boundCallError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorTimeout, op+" timed out")
	}

	return err
}

func lookupKey(provider string, kind string, subKey string) string {
	return provider + "/" + kind + "/" + subKey
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
