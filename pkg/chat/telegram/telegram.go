// Package telegram implements the Telegram chat provider on top of the Bot
// API client; the client owns the wire protocol.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/mymmrac/telego"

	"chatrelay/pkg/bus"
	"chatrelay/pkg/chat"
	"chatrelay/pkg/config"
)

const providerName = "telegram"
const messagePreviewLimit = 240

// Provider bridges Telegram into the relay: it satisfies the chat capability
// contract and streams inbound updates onto the message bus.
type Provider struct {
	cfg       config.TelegramConfig
	allowFrom map[string]struct{}
	log       *slog.Logger
	bot       *telego.Bot

	mu      sync.Mutex
	botUser *telego.User
}

// New validates Telegram configuration and constructs the provider.
func New(cfg config.TelegramConfig, log *slog.Logger) (*Provider, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("providers.telegram.token is required")
	}

	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}

	return &Provider{
		cfg:       cfg,
		allowFrom: allowFromSet(cfg.AllowFrom),
		log:       log.With("component", "chat.telegram"),
		bot:       bot,
	}, nil
}

// Name returns the provider identifier used in registry and bus envelopes.
func (p *Provider) Name() string {
	return providerName
}

// Kind marks Telegram as a public chat back-end.
func (p *Provider) Kind() chat.Kind {
	return chat.KindChat
}

// LookupUser resolves a numeric id or @username into a canonical user record.
func (p *Provider) LookupUser(ctx context.Context, handle string) (chat.User, error) {
	info, err := p.getChat(ctx, strings.TrimPrefix(strings.TrimSpace(handle), "@"))
	if err != nil {
		return chat.User{}, fmt.Errorf("lookup telegram user %s: %w", handle, err)
	}

	return chat.User{
		ID:     strconv.FormatInt(info.ID, 10),
		Handle: info.Username,
		Name:   displayNameOf(info),
	}, nil
}

// LookupRoom resolves a numeric chat id or public @name into a room record.
func (p *Provider) LookupRoom(ctx context.Context, query chat.RoomQuery) (chat.Room, error) {
	target := strings.TrimSpace(query.ID)
	if target == "" {
		target = strings.TrimPrefix(strings.TrimSpace(query.Name), "@")
	}

	info, err := p.getChat(ctx, target)
	if err != nil {
		return chat.Room{}, fmt.Errorf("lookup telegram room %s: %w", target, err)
	}

	name := info.Title
	if name == "" {
		name = displayNameOf(info)
	}

	return chat.Room{
		ID:   strconv.FormatInt(info.ID, 10),
		Name: name,
		IsDM: info.Type == telego.ChatTypePrivate,
	}, nil
}

// ListJoinedRooms is unsupported: the Bot API exposes no chat listing.
func (p *Provider) ListJoinedRooms(_ context.Context) ([]chat.Room, error) {
	return nil, chat.NotImplementedError(providerName, "list joined rooms")
}

// Join is unsupported: Telegram bots are added to chats by members.
func (p *Provider) Join(_ context.Context, _ string) error {
	return chat.NotImplementedError(providerName, "join")
}

// Leave removes the bot from a chat.
func (p *Provider) Leave(ctx context.Context, roomID string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(roomID), 10, 64)
	if err != nil {
		return fmt.Errorf("leave telegram room: invalid chat id %q", roomID)
	}

	if err := p.bot.LeaveChat(ctx, &telego.LeaveChatParams{ChatID: telego.ChatID{ID: id}}); err != nil {
		return fmt.Errorf("leave telegram room %s: %w", roomID, err)
	}

	return nil
}

// MentionName formats a handle the way Telegram users type mentions.
func (p *Provider) MentionName(handle string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if trimmed == "" {
		return "", fmt.Errorf("mention name: empty handle")
	}

	return "@" + trimmed, nil
}

// DisplayName returns the bot's mention name once Run has resolved identity.
func (p *Provider) DisplayName() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.botUser == nil {
		return "", errors.New("telegram bot identity not resolved yet")
	}

	return "@" + p.botUser.Username, nil
}

// SendMessage delivers text to a chat by canonical room id.
func (p *Provider) SendMessage(ctx context.Context, roomID string, text string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(roomID), 10, 64)
	if err != nil {
		return fmt.Errorf("send telegram message: invalid chat id %q", roomID)
	}

	if _, err := p.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: id},
		Text:   text,
	}); err != nil {
		return fmt.Errorf("send telegram message to %s: %w", roomID, err)
	}

	return nil
}

// Run starts long polling and publishes inbound text messages onto the bus.
func (p *Provider) Run(ctx context.Context, mb *bus.MessageBus) error {
	botUser, err := p.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("resolve telegram bot identity: %w", err)
	}

	p.mu.Lock()
	p.botUser = botUser
	p.mu.Unlock()

	updates, err := p.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	p.publishEvent(ctx, mb, chat.Event{Kind: "init", Provider: providerName})
	p.log.Info("Telegram provider started", "bot", botUser.Username)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			message := update.Message
			if message == nil {
				continue
			}

			text := strings.TrimSpace(message.Text)
			if text == "" {
				// Only text updates can carry commands.
				continue
			}
			if message.From == nil {
				p.log.Debug("Ignoring message without sender")
				continue
			}

			senderID := strconv.FormatInt(message.From.ID, 10)
			if !p.senderAllowed(senderID) {
				p.log.Debug("Ignoring message from unauthorized sender", "sender_id", senderID)
				continue
			}

			inbound := chat.Message{
				ID:       strconv.Itoa(message.MessageID),
				Provider: providerName,
				Room: chat.Room{
					ID:   strconv.FormatInt(message.Chat.ID, 10),
					Name: message.Chat.Title,
					IsDM: message.Chat.Type == telego.ChatTypePrivate,
				},
				User: chat.User{
					ID:     senderID,
					Handle: message.From.Username,
					Name:   strings.TrimSpace(message.From.FirstName + " " + message.From.LastName),
				},
				Text:    text,
				BotName: "@" + botUser.Username,
			}

			payload, err := json.Marshal(inbound)
			if err != nil {
				p.log.Error("Failed to encode inbound message", "error", err)
				continue
			}

			p.log.Debug("Received message",
				"chat_id", inbound.Room.ID,
				"sender_id", senderID,
				"content", previewText(text),
			)

			if !mb.PublishMessage(ctx, bus.Envelope{Provider: providerName, Payload: payload}) {
				return nil
			}
		}
	}
}

func (p *Provider) publishEvent(ctx context.Context, mb *bus.MessageBus, event chat.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	mb.PublishEvent(ctx, bus.Envelope{Provider: providerName, Payload: payload})
}

// getChat resolves either a numeric chat/user id or a public username.
func (p *Provider) getChat(ctx context.Context, target string) (*telego.ChatFullInfo, error) {
	if target == "" {
		return nil, errors.New("empty lookup target")
	}

	var chatID telego.ChatID
	if id, err := strconv.ParseInt(target, 10, 64); err == nil {
		chatID = telego.ChatID{ID: id}
	} else {
		chatID = telego.ChatID{Username: "@" + target}
	}

	info, err := p.bot.GetChat(ctx, &telego.GetChatParams{ChatID: chatID})
	if err != nil {
		return nil, err
	}

	return info, nil
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (p *Provider) senderAllowed(senderID string) bool {
	if len(p.allowFrom) == 0 {
		return true
	}

	_, ok := p.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

func displayNameOf(info *telego.ChatFullInfo) string {
	return strings.TrimSpace(strings.TrimSpace(info.FirstName) + " " + strings.TrimSpace(info.LastName))
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}
