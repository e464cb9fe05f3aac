package model

import "time"

// Raw activity events collected by the ingest bot. This package only
// describes them; the analytics core reads them and never mutates them.

// PresenceStatus is a member's presence state at a point in time.
type PresenceStatus string

const (
	StatusOnline    PresenceStatus = "online"
	StatusIdle      PresenceStatus = "idle"
	StatusDND       PresenceStatus = "dnd"
	StatusOffline   PresenceStatus = "offline"
	StatusStreaming PresenceStatus = "streaming"
)

// ActivityType classifies a logged activity.
type ActivityType string

const (
	ActivityPlaying   ActivityType = "playing"
	ActivityListening ActivityType = "listening"
	ActivityWatching  ActivityType = "watching"
	ActivityStreaming ActivityType = "streaming"
	ActivityCompeting ActivityType = "competing"
	ActivityCustom    ActivityType = "custom"
)

// Member is a community member known to the collector.
type Member struct {
	UserID    int64     `json:"user_id" db:"user_id"`
	FirstSeen time.Time `json:"first_seen" db:"first_seen"`
}

// Message records that a member posted in a channel. Only metadata is
// kept, never content.
type Message struct {
	MessageID int64     `json:"message_id" db:"message_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	ChannelID int64     `json:"channel_id" db:"channel_id"`
	CharCount *int      `json:"char_count,omitempty" db:"char_count"`
	SentAt    time.Time `json:"sent_at" db:"sent_at"`
}

// VoiceSession records one stay in a voice channel. LeftAt is nil while
// the session is ongoing.
type VoiceSession struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"user_id" db:"user_id"`
	ChannelID int64      `json:"channel_id" db:"channel_id"`
	JoinedAt  time.Time  `json:"joined_at" db:"joined_at"`
	LeftAt    *time.Time `json:"left_at,omitempty" db:"left_at"`
}

// Ongoing reports whether the session has no recorded end.
func (v VoiceSession) Ongoing() bool { return v.LeftAt == nil }

// Activity records one activity (game, stream, ...) a member engaged in.
// EndedAt is nil while the activity is ongoing.
type Activity struct {
	ID        int64        `json:"id" db:"id"`
	UserID    int64        `json:"user_id" db:"user_id"`
	Type      ActivityType `json:"type" db:"activity_type"`
	Name      string       `json:"name" db:"activity_name"`
	StartedAt time.Time    `json:"started_at" db:"started_at"`
	EndedAt   *time.Time   `json:"ended_at,omitempty" db:"ended_at"`
}

// Ongoing reports whether the activity has no recorded end.
func (a Activity) Ongoing() bool { return a.EndedAt == nil }

// PresenceChange records one presence transition. ChangedAt is nil for
// the member's current status.
type PresenceChange struct {
	ID        int64          `json:"id" db:"id"`
	UserID    int64          `json:"user_id" db:"user_id"`
	Status    PresenceStatus `json:"status" db:"status"`
	SetAt     time.Time      `json:"set_at" db:"set_at"`
	ChangedAt *time.Time     `json:"changed_at,omitempty" db:"changed_at"`
}

// CustomStatus records a free-form status a member set.
type CustomStatus struct {
	ID     int64     `json:"id" db:"id"`
	UserID int64     `json:"user_id" db:"user_id"`
	Text   *string   `json:"text,omitempty" db:"status_text"`
	Emoji  *string   `json:"emoji,omitempty" db:"emoji"`
	SetAt  time.Time `json:"set_at" db:"set_at"`
}
