// Package relay wraps the Telegram Bot API client used to watch a source
// group and mirror its messages. It owns chat identifier normalization,
// update ingestion into the store, and the admin roster sync.
package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/amsaid/relayconsole/internal/database"
	"github.com/amsaid/relayconsole/internal/logger"
)

// Options tunes client construction beyond what the stored bot config
// carries.
type Options struct {
	// APIURL overrides the Telegram Bot API endpoint. Empty means the
	// public endpoint.
	APIURL string

	// SendTimeout bounds each outgoing API call.
	SendTimeout time.Duration

	// SkipGetMe skips the initial getMe probe. Used in tests.
	SkipGetMe bool
}

// Client is a Telegram relay bound to one bot config. Updates arriving
// from the source group are persisted through the store; the console
// reads them back from there.
type Client struct {
	b           *bot.Bot
	store       database.Store
	logger      *slog.Logger
	sourceChat  string
	targetChat  string
	sendTimeout time.Duration
}

// New builds a relay client from a stored bot config. Unless SkipGetMe
// is set, the token is probed against the API and a bad one fails here.
func New(cfg *database.BotConfig, store database.Store, log *slog.Logger, opts Options) (*Client, error) {
	if cfg == nil || cfg.Token == "" {
		return nil, fmt.Errorf("relay requires a bot config with a token")
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}

	c := &Client{
		store:       store,
		logger:      log.With("component", "relay"),
		sourceChat:  NormalizeChatID(cfg.SourceGroup),
		targetChat:  NormalizeChatID(cfg.TargetGroup),
		sendTimeout: opts.SendTimeout,
	}

	botOpts := []bot.Option{
		bot.WithDefaultHandler(c.handleUpdate),
		bot.WithMiddlewares(logger.UpdateMiddleware(c.logger)),
	}
	if opts.APIURL != "" {
		botOpts = append(botOpts, bot.WithServerURL(opts.APIURL))
	}
	if opts.SkipGetMe {
		botOpts = append(botOpts, bot.WithSkipGetMe())
	}

	b, err := bot.New(cfg.Token, botOpts...)
	if err != nil {
		return nil, classify("create bot client", err)
	}
	c.b = b

	return c, nil
}

// Start runs the update polling loop until ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	c.logger.InfoContext(ctx, "Starting relay update polling",
		"source_chat", c.sourceChat, "target_chat", c.targetChat)
	c.b.Start(ctx)
	c.logger.InfoContext(ctx, "Relay update polling stopped")
}

// SourceChat returns the normalized source chat identifier.
func (c *Client) SourceChat() string { return c.sourceChat }

// handleUpdate ingests group messages and channel posts into the store.
// Re-delivered updates hit the idempotency key and refresh in place.
func (c *Client) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil {
		return
	}

	chatID := NormalizeChatID(strconv.FormatInt(msg.Chat.ID, 10))
	if c.sourceChat != "" && chatID != c.sourceChat {
		c.logger.DebugContext(ctx, "Ignoring update from unwatched chat", "chat_id", chatID)
		return
	}

	record := &database.Message{
		SourceMessageID: int64(msg.ID),
		SourceChatID:    chatID,
		TargetChatID:    c.targetChat,
		Content:         messageContent(msg),
		MediaType:       mediaType(msg),
		Status:          database.MessageReceived,
		ProcessedAt:     time.Unix(int64(msg.Date), 0).UTC(),
	}
	if err := c.store.UpsertMessage(ctx, record); err != nil {
		c.logger.ErrorContext(ctx, "Failed to persist incoming message",
			"chat_id", chatID, "message_id", msg.ID, "error", err)
		return
	}

	if msg.From != nil {
		user := &database.User{
			UserID:    msg.From.ID,
			Username:  msg.From.Username,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
		}
		if err := c.store.SaveUser(ctx, user); err != nil {
			c.logger.WarnContext(ctx, "Failed to persist message sender",
				"user_id", msg.From.ID, "error", err)
		}
	}
}

func messageContent(msg *models.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

func mediaType(msg *models.Message) string {
	switch {
	case len(msg.Photo) > 0:
		return "photo"
	case msg.Video != nil:
		return "video"
	default:
		return ""
	}
}

// MemberCount returns the number of members in a chat.
func (c *Client) MemberCount(ctx context.Context, chatID string) (int, error) {
	chatID = NormalizeChatID(chatID)
	if chatID == "" {
		return 0, fmt.Errorf("member count: chat id cannot be empty")
	}

	count, err := c.b.GetChatMemberCount(ctx, &bot.GetChatMemberCountParams{ChatID: chatID})
	if err != nil {
		return 0, classify("get chat member count", err)
	}
	return count, nil
}

// Administrators returns the admin roster of a chat mapped to user
// records, with owner and administrator roles flagged as admins.
func (c *Client) Administrators(ctx context.Context, chatID string) ([]database.User, error) {
	chatID = NormalizeChatID(chatID)
	if chatID == "" {
		return nil, fmt.Errorf("administrators: chat id cannot be empty")
	}

	members, err := c.b.GetChatAdministrators(ctx, &bot.GetChatAdministratorsParams{ChatID: chatID})
	if err != nil {
		return nil, classify("get chat administrators", err)
	}

	users := make([]database.User, 0, len(members))
	for _, m := range members {
		var from *models.User
		switch {
		case m.Owner != nil:
			from = m.Owner.User
		case m.Administrator != nil:
			from = &m.Administrator.User
		}
		if from == nil {
			continue
		}
		users = append(users, database.User{
			UserID:    from.ID,
			Username:  from.Username,
			FirstName: from.FirstName,
			LastName:  from.LastName,
			IsAdmin:   true,
			Status:    database.UserActive,
		})
	}
	return users, nil
}

// SyncAdmins fetches the admin roster of a chat and upserts each member
// into the store. Returns how many records were written.
func (c *Client) SyncAdmins(ctx context.Context, chatID string) (int, error) {
	admins, err := c.Administrators(ctx, chatID)
	if err != nil {
		return 0, err
	}

	saved := 0
	for i := range admins {
		if err := c.store.SaveUser(ctx, &admins[i]); err != nil {
			c.logger.WarnContext(ctx, "Failed to save admin",
				"user_id", admins[i].UserID, "error", err)
			continue
		}
		saved++
	}

	c.logger.InfoContext(ctx, "Admin roster synced", "chat_id", chatID, "saved", saved)
	return saved, nil
}

// Send posts a text message to a chat and returns the ID Telegram
// assigned to it.
func (c *Client) Send(ctx context.Context, chatID, text string) (int, error) {
	chatID = NormalizeChatID(chatID)
	if chatID == "" {
		return 0, fmt.Errorf("send: chat id cannot be empty")
	}
	if text == "" {
		return 0, fmt.Errorf("send: message text cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	sent, err := c.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return 0, classify("send message", err)
	}

	c.logger.DebugContext(ctx, "Message sent", "chat_id", chatID, "message_id", sent.ID)
	return sent.ID, nil
}

// LookupChannel resolves a chat through the Telegram API and stores it as
// a channel record. Returns the stored record.
func (c *Client) LookupChannel(ctx context.Context, chatID string) (*database.Channel, error) {
	chatID = NormalizeChatID(chatID)
	if chatID == "" {
		return nil, fmt.Errorf("lookup channel: chat id cannot be empty")
	}

	info, err := c.b.GetChat(ctx, &bot.GetChatParams{ChatID: chatID})
	if err != nil {
		return nil, classify("get chat", err)
	}

	ch := &database.Channel{
		ID:       chatID,
		Username: info.Username,
		Title:    info.Title,
	}
	if existing, err := c.store.GetChannel(ctx, chatID); err == nil && existing != nil {
		ch.AutoResponses = existing.AutoResponses
		ch.Rules = existing.Rules
		ch.Filters = existing.Filters
		ch.ScheduledPosts = existing.ScheduledPosts
		ch.Stats = existing.Stats
		ch.CreatedAt = existing.CreatedAt
	}
	if err := c.store.SaveChannel(ctx, ch); err != nil {
		return nil, fmt.Errorf("lookup channel: %w", err)
	}
	return ch, nil
}

// ChannelMessages returns the ingested messages of a chat, newest first.
// Telegram offers no history API for bots, so this reads what the update
// feed already persisted.
func (c *Client) ChannelMessages(ctx context.Context, chatID string, limit int) ([]database.Message, error) {
	chatID = NormalizeChatID(chatID)
	if chatID == "" {
		return nil, fmt.Errorf("channel messages: chat id cannot be empty")
	}
	return c.store.ListMessagesByChat(ctx, chatID, limit)
}
