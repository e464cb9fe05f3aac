package events

import (
	"context"
	"fmt"
	"time"

	"github.com/guildsight/guildsight/internal/model"
)

// Ingestion surface. The analytics core never calls these; the collector
// bot and the test fixtures do.

// AddMember records a newly seen member. Re-adding a known member is a
// no-op so the collector can replay safely.
func (s *Store) AddMember(ctx context.Context, m *model.Member) error {
	q := s.db.Rebind(`INSERT INTO members (user_id, first_seen) VALUES (?, ?)
		ON CONFLICT (user_id) DO NOTHING`)
	if _, err := s.db.ExecContext(ctx, q, m.UserID, m.FirstSeen); err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// AddMessage records message metadata. Content is never stored.
func (s *Store) AddMessage(ctx context.Context, m *model.Message) error {
	q := s.db.Rebind(`INSERT INTO messages (message_id, user_id, channel_id, char_count, sent_at)
		VALUES (?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, q, m.MessageID, m.UserID, m.ChannelID, m.CharCount, m.SentAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// AddVoiceSession records a voice session. LeftAt may be nil for an
// ongoing session; EndVoiceSession closes it later.
func (s *Store) AddVoiceSession(ctx context.Context, v *model.VoiceSession) error {
	q := s.db.Rebind(`INSERT INTO voice_sessions (user_id, channel_id, joined_at, left_at)
		VALUES (?, ?, ?, ?)`)
	result, err := s.db.ExecContext(ctx, q, v.UserID, v.ChannelID, v.JoinedAt, v.LeftAt)
	if err != nil {
		return fmt.Errorf("insert voice session: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		v.ID = id
	}
	return nil
}

// EndVoiceSession closes an ongoing voice session.
func (s *Store) EndVoiceSession(ctx context.Context, id int64, leftAt time.Time) error {
	q := s.db.Rebind("UPDATE voice_sessions SET left_at = ? WHERE id = ? AND left_at IS NULL")
	if _, err := s.db.ExecContext(ctx, q, leftAt, id); err != nil {
		return fmt.Errorf("end voice session: %w", err)
	}
	return nil
}

// AddActivity records an activity. EndedAt may be nil while ongoing.
func (s *Store) AddActivity(ctx context.Context, a *model.Activity) error {
	q := s.db.Rebind(`INSERT INTO activities (user_id, activity_type, activity_name, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?)`)
	result, err := s.db.ExecContext(ctx, q, a.UserID, a.Type, a.Name, a.StartedAt, a.EndedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		a.ID = id
	}
	return nil
}

// AddPresenceChange records a presence transition.
func (s *Store) AddPresenceChange(ctx context.Context, p *model.PresenceChange) error {
	q := s.db.Rebind(`INSERT INTO presence_changes (user_id, status, set_at, changed_at)
		VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, q, p.UserID, p.Status, p.SetAt, p.ChangedAt); err != nil {
		return fmt.Errorf("insert presence change: %w", err)
	}
	return nil
}

// AddCustomStatus records a free-form status.
func (s *Store) AddCustomStatus(ctx context.Context, c *model.CustomStatus) error {
	q := s.db.Rebind(`INSERT INTO custom_statuses (user_id, status_text, emoji, set_at)
		VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, q, c.UserID, c.Text, c.Emoji, c.SetAt); err != nil {
		return fmt.Errorf("insert custom status: %w", err)
	}
	return nil
}
