package events

import (
	"context"
	"fmt"

	"github.com/guildsight/guildsight/internal/model"
	"github.com/guildsight/guildsight/internal/stats"
)

// Read access for the aggregation engine. Queries scope by entity and
// window; all derived math happens in internal/stats. Rebind translates
// the ? placeholders for whichever backend is connected.

func (s *Store) selectMessages(ctx context.Context, where string, args ...interface{}) ([]model.Message, error) {
	var msgs []model.Message
	q := s.db.Rebind("SELECT * FROM messages WHERE " + where + " ORDER BY sent_at DESC, message_id DESC")
	if err := s.db.SelectContext(ctx, &msgs, q, args...); err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	return msgs, nil
}

// Messages returns every message in the window.
func (s *Store) Messages(ctx context.Context, w stats.Window) ([]model.Message, error) {
	if w.Empty() {
		return nil, nil
	}
	return s.selectMessages(ctx, "sent_at >= ? AND sent_at <= ?", w.Start, w.End)
}

// MessagesByUser returns one member's messages in the window.
func (s *Store) MessagesByUser(ctx context.Context, userID int64, w stats.Window) ([]model.Message, error) {
	if w.Empty() {
		return nil, nil
	}
	return s.selectMessages(ctx, "user_id = ? AND sent_at >= ? AND sent_at <= ?", userID, w.Start, w.End)
}

// MessagesByChannel returns one channel's messages in the window.
func (s *Store) MessagesByChannel(ctx context.Context, channelID int64, w stats.Window) ([]model.Message, error) {
	if w.Empty() {
		return nil, nil
	}
	return s.selectMessages(ctx, "channel_id = ? AND sent_at >= ? AND sent_at <= ?", channelID, w.Start, w.End)
}

// UserMessages pages one member's messages in the window, newest first.
func (s *Store) UserMessages(ctx context.Context, userID int64, w stats.Window, limit, offset int) ([]model.Message, error) {
	if w.Empty() || limit <= 0 {
		return nil, nil
	}
	var msgs []model.Message
	q := s.db.Rebind(`SELECT * FROM messages
		WHERE user_id = ? AND sent_at >= ? AND sent_at <= ?
		ORDER BY sent_at DESC, message_id DESC LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &msgs, q, userID, w.Start, w.End, limit, offset); err != nil {
		return nil, fmt.Errorf("page user messages: %w", err)
	}
	return msgs, nil
}

func (s *Store) selectVoiceSessions(ctx context.Context, where string, args ...interface{}) ([]model.VoiceSession, error) {
	var sessions []model.VoiceSession
	q := s.db.Rebind("SELECT * FROM voice_sessions WHERE " + where + " ORDER BY joined_at DESC, id DESC")
	if err := s.db.SelectContext(ctx, &sessions, q, args...); err != nil {
		return nil, fmt.Errorf("select voice sessions: %w", err)
	}
	return sessions, nil
}

// VoiceSessions returns every voice session that started in the window.
func (s *Store) VoiceSessions(ctx context.Context, w stats.Window) ([]model.VoiceSession, error) {
	if w.Empty() {
		return nil, nil
	}
	return s.selectVoiceSessions(ctx, "joined_at >= ? AND joined_at <= ?", w.Start, w.End)
}

// VoiceSessionsByUser returns one member's voice sessions that started
// in the window.
func (s *Store) VoiceSessionsByUser(ctx context.Context, userID int64, w stats.Window) ([]model.VoiceSession, error) {
	if w.Empty() {
		return nil, nil
	}
	return s.selectVoiceSessions(ctx, "user_id = ? AND joined_at >= ? AND joined_at <= ?", userID, w.Start, w.End)
}

// UserVoiceSessions pages one member's voice sessions in the window,
// newest first.
func (s *Store) UserVoiceSessions(ctx context.Context, userID int64, w stats.Window, limit, offset int) ([]model.VoiceSession, error) {
	if w.Empty() || limit <= 0 {
		return nil, nil
	}
	var sessions []model.VoiceSession
	q := s.db.Rebind(`SELECT * FROM voice_sessions
		WHERE user_id = ? AND joined_at >= ? AND joined_at <= ?
		ORDER BY joined_at DESC, id DESC LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &sessions, q, userID, w.Start, w.End, limit, offset); err != nil {
		return nil, fmt.Errorf("page user voice sessions: %w", err)
	}
	return sessions, nil
}

func (s *Store) selectActivities(ctx context.Context, where string, args ...interface{}) ([]model.Activity, error) {
	var acts []model.Activity
	q := s.db.Rebind("SELECT * FROM activities WHERE " + where + " ORDER BY started_at DESC, id DESC")
	if err := s.db.SelectContext(ctx, &acts, q, args...); err != nil {
		return nil, fmt.Errorf("select activities: %w", err)
	}
	return acts, nil
}

// Activities returns every activity that started in the window.
func (s *Store) Activities(ctx context.Context, w stats.Window) ([]model.Activity, error) {
	if w.Empty() {
		return nil, nil
	}
	return s.selectActivities(ctx, "started_at >= ? AND started_at <= ?", w.Start, w.End)
}

// ActivitiesByUser returns one member's activities that started in the
// window.
func (s *Store) ActivitiesByUser(ctx context.Context, userID int64, w stats.Window) ([]model.Activity, error) {
	if w.Empty() {
		return nil, nil
	}
	return s.selectActivities(ctx, "user_id = ? AND started_at >= ? AND started_at <= ?", userID, w.Start, w.End)
}

// UserActivities pages one member's activities in the window, newest
// first. Ongoing activities appear with a null ended_at.
func (s *Store) UserActivities(ctx context.Context, userID int64, w stats.Window, limit, offset int) ([]model.Activity, error) {
	if w.Empty() || limit <= 0 {
		return nil, nil
	}
	var acts []model.Activity
	q := s.db.Rebind(`SELECT * FROM activities
		WHERE user_id = ? AND started_at >= ? AND started_at <= ?
		ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &acts, q, userID, w.Start, w.End, limit, offset); err != nil {
		return nil, fmt.Errorf("page user activities: %w", err)
	}
	return acts, nil
}

// UserPresenceChanges pages one member's presence transitions set in the
// window, newest first. The member's current status has a null
// changed_at.
func (s *Store) UserPresenceChanges(ctx context.Context, userID int64, w stats.Window, limit, offset int) ([]model.PresenceChange, error) {
	if w.Empty() || limit <= 0 {
		return nil, nil
	}
	var changes []model.PresenceChange
	q := s.db.Rebind(`SELECT * FROM presence_changes
		WHERE user_id = ? AND set_at >= ? AND set_at <= ?
		ORDER BY set_at DESC, id DESC LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &changes, q, userID, w.Start, w.End, limit, offset); err != nil {
		return nil, fmt.Errorf("page user presence changes: %w", err)
	}
	return changes, nil
}

// UserCustomStatuses pages one member's custom statuses set in the
// window, newest first.
func (s *Store) UserCustomStatuses(ctx context.Context, userID int64, w stats.Window, limit, offset int) ([]model.CustomStatus, error) {
	if w.Empty() || limit <= 0 {
		return nil, nil
	}
	var statuses []model.CustomStatus
	q := s.db.Rebind(`SELECT * FROM custom_statuses
		WHERE user_id = ? AND set_at >= ? AND set_at <= ?
		ORDER BY set_at DESC, id DESC LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &statuses, q, userID, w.Start, w.End, limit, offset); err != nil {
		return nil, fmt.Errorf("page user custom statuses: %w", err)
	}
	return statuses, nil
}

// ListMembers pages the member directory, most recently seen first.
func (s *Store) ListMembers(ctx context.Context, limit, offset int) ([]model.Member, error) {
	if limit <= 0 {
		return nil, nil
	}
	var members []model.Member
	q := s.db.Rebind(`SELECT * FROM members
		ORDER BY first_seen DESC, user_id DESC LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &members, q, limit, offset); err != nil {
		return nil, fmt.Errorf("page members: %w", err)
	}
	return members, nil
}

// CountMembers counts members first seen inside the window.
func (s *Store) CountMembers(ctx context.Context, w stats.Window) (int, error) {
	if w.Empty() {
		return 0, nil
	}
	var n int
	q := s.db.Rebind("SELECT COUNT(*) FROM members WHERE first_seen >= ? AND first_seen <= ?")
	if err := s.db.GetContext(ctx, &n, q, w.Start, w.End); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}
