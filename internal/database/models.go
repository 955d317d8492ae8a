package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BotConfig holds the credentials and routing identifiers driving the relay.
// Configs are never deleted; inserting a new one supersedes the previous,
// and GetBotConfig always returns the most recently inserted record.
type BotConfig struct {
	ID          string    `db:"id"           json:"id"`
	Token       string    `db:"token"        json:"token"`
	SourceGroup string    `db:"source_group" json:"sourceGroup"`
	TargetGroup string    `db:"target_group" json:"targetGroup"`
	IsActive    bool      `db:"is_active"    json:"isActive"`
	CreatedAt   time.Time `db:"created_at"   json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at"   json:"updatedAt"`
}

// MessageStatus is the lifecycle state of a relayed message.
type MessageStatus string

const (
	MessageReceived MessageStatus = "received"
	MessageActive   MessageStatus = "active"
	MessageDeleted  MessageStatus = "deleted"
)

// statusRank orders message statuses for the forward-only transition check.
var statusRank = map[MessageStatus]int{
	MessageReceived: 0,
	MessageActive:   1,
	MessageDeleted:  2,
}

// Valid reports whether s is a known message status.
func (s MessageStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Message is a normalized message ingested from the relay's update feed.
// Records are immutable once written except for the status field.
// (SourceChatID, SourceMessageID) is the idempotency key: re-polling the
// same update upserts rather than duplicating.
type Message struct {
	ID              uint          `db:"id"                json:"id"`
	SourceMessageID int64         `db:"source_message_id" json:"sourceMessageId"`
	SourceChatID    string        `db:"source_chat_id"    json:"sourceChatId"`
	TargetChatID    string        `db:"target_chat_id"    json:"targetChatId"`
	Content         string        `db:"content"           json:"content"`
	MediaType       string        `db:"media_type"        json:"mediaType"`
	Status          MessageStatus `db:"status"            json:"status"`
	ProcessedAt     time.Time     `db:"processed_at"      json:"processedAt"`
	CreatedAt       time.Time     `db:"created_at"        json:"createdAt"`
	UpdatedAt       time.Time     `db:"updated_at"        json:"updatedAt"`
}

// MessageStats aggregates message counts for the dashboard.
type MessageStats struct {
	Total int `json:"total"`
	Today int `json:"today"`
}

// UserStatus is the moderation state of a group member.
type UserStatus string

const (
	UserActive     UserStatus = "active"
	UserRestricted UserStatus = "restricted"
	UserBanned     UserStatus = "banned"
)

// Valid reports whether s is a known user status.
func (s UserStatus) Valid() bool {
	switch s {
	case UserActive, UserRestricted, UserBanned:
		return true
	}
	return false
}

// StringList stores a JSON-encoded list of strings in a TEXT column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue([]string(l))
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	return scanJSON(l, src)
}

// User is a group member known to the console, created by admin-list sync
// and mutated by moderation actions.
type User struct {
	UserID      int64      `db:"user_id"     json:"userId"`
	Username    string     `db:"username"    json:"username"`
	FirstName   string     `db:"first_name"  json:"firstName"`
	LastName    string     `db:"last_name"   json:"lastName"`
	IsAdmin     bool       `db:"is_admin"    json:"isAdmin"`
	Permissions StringList `db:"permissions" json:"permissions"`
	JoinDate    time.Time  `db:"join_date"   json:"joinDate"`
	Status      UserStatus `db:"status"      json:"status"`
	CreatedAt   time.Time  `db:"created_at"  json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at"  json:"updatedAt"`
}

// AutoResponse is a trigger/response pair configured per channel.
type AutoResponse struct {
	Trigger  string `json:"trigger"`
	Response string `json:"response"`
	IsActive bool   `json:"isActive"`
}

// ContentFilter describes a moderation filter configured per channel.
type ContentFilter struct {
	Type    string `json:"type"`
	Pattern string `json:"pattern"`
	Action  string `json:"action"`
}

// ScheduledPost is a post queued for future delivery to a channel.
type ScheduledPost struct {
	ID           string `json:"id"`
	Content      string `json:"content"`
	ScheduledFor string `json:"scheduledFor"`
	MediaURL     string `json:"mediaUrl,omitempty"`
	Status       string `json:"status"`
}

// ChannelStats caches per-channel aggregate counters.
type ChannelStats struct {
	MemberCount  int `json:"memberCount"`
	MessageCount int `json:"messageCount"`
	ActiveUsers  int `json:"activeUsers"`
}

// AutoResponseList, FilterList, PostList and StatsColumn store their JSON
// encodings in TEXT columns.
type (
	AutoResponseList []AutoResponse
	FilterList       []ContentFilter
	PostList         []ScheduledPost
	StatsColumn      ChannelStats
)

func (l AutoResponseList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue([]AutoResponse(l))
}
func (l *AutoResponseList) Scan(src any) error { return scanJSON(l, src) }

func (l FilterList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue([]ContentFilter(l))
}
func (l *FilterList) Scan(src any) error { return scanJSON(l, src) }

func (l PostList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue([]ScheduledPost(l))
}
func (l *PostList) Scan(src any) error { return scanJSON(l, src) }

func (s StatsColumn) Value() (driver.Value, error) { return jsonValue(ChannelStats(s)) }
func (s *StatsColumn) Scan(src any) error          { return scanJSON(s, src) }

// Channel is a managed channel with its per-channel configuration,
// created via relay lookup and mutated through the settings endpoints.
type Channel struct {
	ID             string           `db:"id"              json:"id"`
	Username       string           `db:"username"        json:"username"`
	Title          string           `db:"title"           json:"title"`
	AutoResponses  AutoResponseList `db:"auto_responses"  json:"autoResponses"`
	Rules          StringList       `db:"rules"           json:"rules"`
	Filters        FilterList       `db:"filters"         json:"filters"`
	ScheduledPosts PostList         `db:"scheduled_posts" json:"scheduledPosts"`
	Stats          StatsColumn      `db:"stats"           json:"stats"`
	CreatedAt      time.Time        `db:"created_at"      json:"createdAt"`
	UpdatedAt      time.Time        `db:"updated_at"      json:"updatedAt"`
}

// ActivityEntry is one row of the dashboard activity log, derived from
// recent message and user mutations.
type ActivityEntry struct {
	Type      string    `json:"type"`
	Subject   string    `json:"subject"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode json column: %w", err)
	}
	return string(b), nil
}

func scanJSON(dst any, src any) error {
	switch s := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(s) == 0 {
			return nil
		}
		return json.Unmarshal(s, dst)
	case string:
		if s == "" {
			return nil
		}
		return json.Unmarshal([]byte(s), dst)
	default:
		return fmt.Errorf("cannot scan %T into json column", src)
	}
}
