package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Store defines the data access layer over the three record families
// (bot configs, messages, users) plus the channels family added in the
// second schema revision. Methods accept context.Context for cancellation.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveBotConfig inserts a new bot config record. A zero ID is
	// assigned a fresh UUID; an existing ID collides with ErrDuplicate.
	SaveBotConfig(ctx context.Context, cfg *BotConfig) error

	// GetBotConfig returns the most recently inserted config, or nil, nil
	// when none exists.
	GetBotConfig(ctx context.Context) (*BotConfig, error)

	// ListBotConfigs returns all configs, newest first.
	ListBotConfigs(ctx context.Context) ([]BotConfig, error)

	// AddMessage inserts a message; an existing idempotency key
	// (source_chat_id, source_message_id) fails with ErrDuplicate.
	AddMessage(ctx context.Context, msg *Message) error

	// UpsertMessage inserts a message or, when the idempotency key
	// already exists, refreshes its content while preserving status.
	UpsertMessage(ctx context.Context, msg *Message) error

	// GetMessage retrieves a message by store-assigned ID. Returns
	// nil, nil if not found.
	GetMessage(ctx context.Context, id uint) (*Message, error)

	// ListMessagesByChat returns messages ingested from the given source
	// chat, newest first, capped at limit.
	ListMessagesByChat(ctx context.Context, chatID string, limit int) ([]Message, error)

	// UpdateMessageStatus moves a message's status forward. Unknown IDs
	// fail with ErrNotFound; backward transitions with ErrInvalidTransition.
	UpdateMessageStatus(ctx context.Context, id uint, status MessageStatus) error

	// DeleteMessage removes a message; an absent ID is a no-op.
	DeleteMessage(ctx context.Context, id uint) error

	// GetMessageStats returns the total message count and the count of
	// messages processed within the UTC calendar day of now.
	GetMessageStats(ctx context.Context, now time.Time) (MessageStats, error)

	// SaveUser inserts or updates a user by user ID.
	SaveUser(ctx context.Context, user *User) error

	// GetUser retrieves a user by ID. Returns nil, nil if not found.
	GetUser(ctx context.Context, userID int64) (*User, error)

	// ListUsers returns all users ordered by join date.
	ListUsers(ctx context.Context) ([]User, error)

	// UpdateUserStatus changes a user's moderation status. Unknown users
	// fail with ErrNotFound.
	UpdateUserStatus(ctx context.Context, userID int64, status UserStatus) error

	// DeleteUser removes a user; an absent ID is a no-op.
	DeleteUser(ctx context.Context, userID int64) error

	// SaveChannel inserts or updates a channel by ID.
	SaveChannel(ctx context.Context, ch *Channel) error

	// GetChannel retrieves a channel by ID. Returns nil, nil if not found.
	GetChannel(ctx context.Context, id string) (*Channel, error)

	// ListChannels returns all channels.
	ListChannels(ctx context.Context) ([]Channel, error)

	// ListActivity returns the most recent message and user mutations,
	// merged and ordered newest first.
	ListActivity(ctx context.Context, limit int) ([]ActivityEntry, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// SaveBotConfig inserts a new bot config record. Configs are append-only:
// the newest insert supersedes all previous ones.
func (s *sqlxStore) SaveBotConfig(ctx context.Context, cfg *BotConfig) error {
	if cfg == nil {
		return fmt.Errorf("cannot save nil bot config")
	}
	if cfg.Token == "" {
		return fmt.Errorf("bot config must have a non-empty token")
	}

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	query := `
        INSERT INTO bot_configs (id, token, source_group, target_group, is_active, created_at, updated_at)
        VALUES (:id, :token, :source_group, :target_group, :is_active, :created_at, :updated_at);
    `
	_, err := s.db.NamedExecContext(ctx, query, cfg)
	if isUniqueViolation(err) {
		return fmt.Errorf("bot config %s already exists: %w", cfg.ID, ErrDuplicate)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving bot config", "config_id", cfg.ID, "error", err)
		return fmt.Errorf("failed to save bot config %s: %w", cfg.ID, err)
	}

	s.logger.DebugContext(ctx, "Bot config saved successfully", "config_id", cfg.ID)
	return nil
}

// GetBotConfig returns the most recently inserted config (last-inserted
// wins when multiple configs exist). Returns nil, nil when none exists.
func (s *sqlxStore) GetBotConfig(ctx context.Context) (*BotConfig, error) {
	var cfg BotConfig
	query := `SELECT id, token, source_group, target_group, is_active, created_at, updated_at
	          FROM bot_configs
	          ORDER BY created_at DESC, rowid DESC
	          LIMIT 1`

	err := s.db.GetContext(ctx, &cfg, query)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No bot config found")
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting bot config", "error", err)
		return nil, fmt.Errorf("failed to get bot config: %w", err)
	}

	return &cfg, nil
}

// ListBotConfigs returns all configs, newest first.
func (s *sqlxStore) ListBotConfigs(ctx context.Context) ([]BotConfig, error) {
	var configs []BotConfig
	query := `SELECT id, token, source_group, target_group, is_active, created_at, updated_at
	          FROM bot_configs
	          ORDER BY created_at DESC, rowid DESC`

	if err := s.db.SelectContext(ctx, &configs, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing bot configs", "error", err)
		return nil, fmt.Errorf("failed to list bot configs: %w", err)
	}
	return configs, nil
}

func validateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("cannot save nil message")
	}
	if msg.SourceChatID == "" {
		return fmt.Errorf("message must have a non-empty source_chat_id")
	}
	if msg.SourceMessageID == 0 {
		return fmt.Errorf("message must have a non-zero source_message_id")
	}
	if msg.Status == "" {
		msg.Status = MessageReceived
	}
	if !msg.Status.Valid() {
		return fmt.Errorf("unknown message status %q", msg.Status)
	}
	if msg.ProcessedAt.IsZero() {
		msg.ProcessedAt = time.Now().UTC()
	}
	return nil
}

// AddMessage inserts a new message record. An existing idempotency key
// fails with ErrDuplicate.
func (s *sqlxStore) AddMessage(ctx context.Context, msg *Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}

	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	query := `
        INSERT INTO messages (source_message_id, source_chat_id, target_chat_id, content, media_type, status, processed_at, created_at, updated_at)
        VALUES (:source_message_id, :source_chat_id, :target_chat_id, :content, :media_type, :status, :processed_at, :created_at, :updated_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, msg)
	if isUniqueViolation(err) {
		return fmt.Errorf("message %d in chat %s already exists: %w", msg.SourceMessageID, msg.SourceChatID, ErrDuplicate)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message",
			"source_chat_id", msg.SourceChatID, "source_message_id", msg.SourceMessageID, "error", err)
		return fmt.Errorf("failed to save message %d (chat %s): %w", msg.SourceMessageID, msg.SourceChatID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		msg.ID = uint(id)
	}

	s.logger.DebugContext(ctx, "Message saved successfully",
		"source_chat_id", msg.SourceChatID, "source_message_id", msg.SourceMessageID, "message_id", msg.ID)
	return nil
}

// UpsertMessage inserts a message or refreshes the content of an existing
// one under the (source_chat_id, source_message_id) idempotency key. The
// status of an existing record is preserved; re-polling the same update
// feed never resets moderation state.
func (s *sqlxStore) UpsertMessage(ctx context.Context, msg *Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}

	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	query := `
        INSERT INTO messages (source_message_id, source_chat_id, target_chat_id, content, media_type, status, processed_at, created_at, updated_at)
        VALUES (:source_message_id, :source_chat_id, :target_chat_id, :content, :media_type, :status, :processed_at, :created_at, :updated_at)
        ON CONFLICT(source_chat_id, source_message_id) DO UPDATE SET
            content = excluded.content,
            media_type = excluded.media_type,
            target_chat_id = excluded.target_chat_id,
            updated_at = excluded.updated_at;
    `
	if _, err := s.db.NamedExecContext(ctx, query, msg); err != nil {
		s.logger.ErrorContext(ctx, "Error upserting message",
			"source_chat_id", msg.SourceChatID, "source_message_id", msg.SourceMessageID, "error", err)
		return fmt.Errorf("failed to upsert message %d (chat %s): %w", msg.SourceMessageID, msg.SourceChatID, err)
	}

	return nil
}

// GetMessage retrieves a message by ID. Returns nil, nil if not found.
func (s *sqlxStore) GetMessage(ctx context.Context, id uint) (*Message, error) {
	var msg Message
	query := `SELECT id, source_message_id, source_chat_id, target_chat_id, content, media_type, status, processed_at, created_at, updated_at
	          FROM messages WHERE id = ?`

	err := s.db.GetContext(ctx, &msg, query, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting message", "message_id", id, "error", err)
		return nil, fmt.Errorf("failed to get message %d: %w", id, err)
	}
	return &msg, nil
}

// ListMessagesByChat returns messages for a source chat, newest first.
// Uses the source_chat_id index rather than a full scan.
func (s *sqlxStore) ListMessagesByChat(ctx context.Context, chatID string, limit int) ([]Message, error) {
	if chatID == "" {
		return nil, fmt.Errorf("chat_id cannot be empty")
	}
	if limit <= 0 {
		limit = 100
	}

	var messages []Message
	query := `SELECT id, source_message_id, source_chat_id, target_chat_id, content, media_type, status, processed_at, created_at, updated_at
	          FROM messages
	          WHERE source_chat_id = ?
	          ORDER BY processed_at DESC, id DESC
	          LIMIT ?`

	if err := s.db.SelectContext(ctx, &messages, query, chatID, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error listing messages", "source_chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to list messages for chat %s: %w", chatID, err)
	}

	s.logger.DebugContext(ctx, "Fetched messages successfully", "source_chat_id", chatID, "count", len(messages))
	return messages, nil
}

// UpdateMessageStatus moves a message's status forward only. Updating to
// the current status is a no-op success; moving backwards fails with
// ErrInvalidTransition.
func (s *sqlxStore) UpdateMessageStatus(ctx context.Context, id uint, status MessageStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unknown message status %q", status)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	var current MessageStatus
	err = tx.GetContext(ctx, &current, `SELECT status FROM messages WHERE id = ?`, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("message %d: %w", id, ErrNotFound)
	case err != nil:
		return fmt.Errorf("failed to read status of message %d: %w", id, err)
	}

	if statusRank[status] < statusRank[current] {
		return fmt.Errorf("message %d: %s -> %s: %w", id, current, status, ErrInvalidTransition)
	}
	if status == current {
		// No-op; the deferred rollback releases the read transaction.
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update status of message %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Message status updated", "message_id", id, "from", current, "to", status)
	return nil
}

// DeleteMessage removes a message record; an absent ID is a no-op success.
func (s *sqlxStore) DeleteMessage(ctx context.Context, id uint) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id); err != nil {
		s.logger.ErrorContext(ctx, "Error deleting message", "message_id", id, "error", err)
		return fmt.Errorf("failed to delete message %d: %w", id, err)
	}
	return nil
}

// GetMessageStats counts all messages plus those whose processed_at falls
// within the UTC calendar day of now. The today count is a bounded range
// scan over the processed_at index, not a full scan.
func (s *sqlxStore) GetMessageStats(ctx context.Context, now time.Time) (MessageStats, error) {
	var stats MessageStats

	if err := s.db.GetContext(ctx, &stats.Total, `SELECT COUNT(*) FROM messages`); err != nil {
		s.logger.ErrorContext(ctx, "Error counting messages", "error", err)
		return MessageStats{}, fmt.Errorf("failed to count messages: %w", err)
	}

	dayStart := now.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	err := s.db.GetContext(ctx, &stats.Today,
		`SELECT COUNT(*) FROM messages WHERE processed_at >= ? AND processed_at < ?`,
		dayStart, dayEnd)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error counting today's messages", "error", err)
		return MessageStats{}, fmt.Errorf("failed to count today's messages: %w", err)
	}

	return stats, nil
}

// SaveUser inserts or updates a user keyed by user ID.
func (s *sqlxStore) SaveUser(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("cannot save nil user")
	}
	if user.UserID == 0 {
		return fmt.Errorf("user must have a non-zero user_id")
	}
	if user.Status == "" {
		user.Status = UserActive
	}
	if !user.Status.Valid() {
		return fmt.Errorf("unknown user status %q", user.Status)
	}

	now := time.Now().UTC()
	user.UpdatedAt = now
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.JoinDate.IsZero() {
		user.JoinDate = now
	}

	query := `
        INSERT INTO users (user_id, username, first_name, last_name, is_admin, permissions, join_date, status, created_at, updated_at)
        VALUES (:user_id, :username, :first_name, :last_name, :is_admin, :permissions, :join_date, :status, :created_at, :updated_at)
        ON CONFLICT(user_id) DO UPDATE SET
            username = excluded.username,
            first_name = excluded.first_name,
            last_name = excluded.last_name,
            is_admin = excluded.is_admin,
            permissions = excluded.permissions,
            updated_at = excluded.updated_at;
    `
	if _, err := s.db.NamedExecContext(ctx, query, user); err != nil {
		s.logger.ErrorContext(ctx, "Error saving user", "user_id", user.UserID, "error", err)
		return fmt.Errorf("failed to save user %d: %w", user.UserID, err)
	}

	s.logger.DebugContext(ctx, "User saved successfully", "user_id", user.UserID)
	return nil
}

// GetUser retrieves a user by ID. Returns nil, nil if not found.
func (s *sqlxStore) GetUser(ctx context.Context, userID int64) (*User, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}

	var user User
	query := `SELECT user_id, username, first_name, last_name, is_admin, permissions, join_date, status, created_at, updated_at
	          FROM users WHERE user_id = ?`

	err := s.db.GetContext(ctx, &user, query, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user found", "user_id", userID)
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return &user, nil
}

// ListUsers returns all users ordered by join date.
func (s *sqlxStore) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	query := `SELECT user_id, username, first_name, last_name, is_admin, permissions, join_date, status, created_at, updated_at
	          FROM users
	          ORDER BY join_date ASC, user_id ASC`

	if err := s.db.SelectContext(ctx, &users, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing users", "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUserStatus changes a user's moderation status. Updating a
// nonexistent user fails with ErrNotFound.
func (s *sqlxStore) UpdateUserStatus(ctx context.Context, userID int64, status UserStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unknown user status %q", status)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET status = ?, updated_at = ? WHERE user_id = ?`,
		status, time.Now().UTC(), userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating user status", "user_id", userID, "error", err)
		return fmt.Errorf("failed to update status of user %d: %w", userID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count", "user_id", userID, "error", err)
	} else if affected == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	s.logger.DebugContext(ctx, "User status updated", "user_id", userID, "status", status)
	return nil
}

// DeleteUser removes a user record; an absent ID is a no-op success.
func (s *sqlxStore) DeleteUser(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID); err != nil {
		s.logger.ErrorContext(ctx, "Error deleting user", "user_id", userID, "error", err)
		return fmt.Errorf("failed to delete user %d: %w", userID, err)
	}
	return nil
}

// SaveChannel inserts or updates a channel keyed by ID.
func (s *sqlxStore) SaveChannel(ctx context.Context, ch *Channel) error {
	if ch == nil {
		return fmt.Errorf("cannot save nil channel")
	}
	if ch.ID == "" {
		return fmt.Errorf("channel must have a non-empty id")
	}

	now := time.Now().UTC()
	ch.UpdatedAt = now
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = now
	}

	query := `
        INSERT INTO channels (id, username, title, auto_responses, rules, filters, scheduled_posts, stats, created_at, updated_at)
        VALUES (:id, :username, :title, :auto_responses, :rules, :filters, :scheduled_posts, :stats, :created_at, :updated_at)
        ON CONFLICT(id) DO UPDATE SET
            username = excluded.username,
            title = excluded.title,
            auto_responses = excluded.auto_responses,
            rules = excluded.rules,
            filters = excluded.filters,
            scheduled_posts = excluded.scheduled_posts,
            stats = excluded.stats,
            updated_at = excluded.updated_at;
    `
	if _, err := s.db.NamedExecContext(ctx, query, ch); err != nil {
		s.logger.ErrorContext(ctx, "Error saving channel", "channel_id", ch.ID, "error", err)
		return fmt.Errorf("failed to save channel %s: %w", ch.ID, err)
	}
	return nil
}

// GetChannel retrieves a channel by ID. Returns nil, nil if not found.
func (s *sqlxStore) GetChannel(ctx context.Context, id string) (*Channel, error) {
	if id == "" {
		return nil, fmt.Errorf("channel id cannot be empty")
	}

	var ch Channel
	query := `SELECT id, username, title, auto_responses, rules, filters, scheduled_posts, stats, created_at, updated_at
	          FROM channels WHERE id = ?`

	err := s.db.GetContext(ctx, &ch, query, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting channel", "channel_id", id, "error", err)
		return nil, fmt.Errorf("failed to get channel %s: %w", id, err)
	}
	return &ch, nil
}

// ListChannels returns all channels.
func (s *sqlxStore) ListChannels(ctx context.Context) ([]Channel, error) {
	var channels []Channel
	query := `SELECT id, username, title, auto_responses, rules, filters, scheduled_posts, stats, created_at, updated_at
	          FROM channels
	          ORDER BY created_at ASC`

	if err := s.db.SelectContext(ctx, &channels, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing channels", "error", err)
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

// ListActivity merges the most recently mutated messages and users into a
// single activity feed, newest first.
func (s *sqlxStore) ListActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	type messageRow struct {
		SourceChatID string        `db:"source_chat_id"`
		Status       MessageStatus `db:"status"`
		Content      string        `db:"content"`
		UpdatedAt    time.Time     `db:"updated_at"`
	}
	var msgRows []messageRow
	err := s.db.SelectContext(ctx, &msgRows,
		`SELECT source_chat_id, status, content, updated_at
		 FROM messages ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list message activity: %w", err)
	}

	type userRow struct {
		Username  string     `db:"username"`
		Status    UserStatus `db:"status"`
		UpdatedAt time.Time  `db:"updated_at"`
	}
	var userRows []userRow
	err = s.db.SelectContext(ctx, &userRows,
		`SELECT username, status, updated_at
		 FROM users ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user activity: %w", err)
	}

	entries := make([]ActivityEntry, 0, len(msgRows)+len(userRows))
	for _, m := range msgRows {
		entries = append(entries, ActivityEntry{
			Type:      "message_" + string(m.Status),
			Subject:   m.SourceChatID,
			Detail:    m.Content,
			Timestamp: m.UpdatedAt,
		})
	}
	for _, u := range userRows {
		entries = append(entries, ActivityEntry{
			Type:      "user_" + string(u.Status),
			Subject:   u.Username,
			Timestamp: u.UpdatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
