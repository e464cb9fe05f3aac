package events

import (
	"context"
	"testing"
	"time"

	"github.com/guildsight/guildsight/internal/model"
	"github.com/guildsight/guildsight/internal/stats"
)

func newTestEvents(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("oracle", "dsn"); err == nil {
		t.Error("unknown driver should fail")
	}
}

func TestMessagesWindowing(t *testing.T) {
	s := newTestEvents(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)

	add := func(id int64, at time.Time) {
		t.Helper()
		if err := s.AddMessage(ctx, &model.Message{MessageID: id, UserID: 1, ChannelID: 10, SentAt: at}); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}
	add(1, now.Add(-time.Hour))
	add(2, now.AddDate(0, 0, -7)) // on the boundary
	add(3, now.AddDate(0, 0, -9)) // outside

	msgs, err := s.Messages(ctx, stats.NewWindow(now, 7))
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].MessageID != 1 {
		t.Errorf("order: first message id = %d, want 1 (newest first)", msgs[0].MessageID)
	}

	none, err := s.Messages(ctx, stats.NewWindow(now, 0))
	if err != nil {
		t.Fatalf("Messages empty window: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("zero-day window returned %d messages, want 0", len(none))
	}
}

func TestMessagesByUserAndChannel(t *testing.T) {
	s := newTestEvents(t)
	ctx := context.Background()
	now := time.Now().UTC()
	w := stats.NewWindow(now, 7)

	fixtures := []model.Message{
		{MessageID: 1, UserID: 1, ChannelID: 10, SentAt: now.Add(-time.Hour)},
		{MessageID: 2, UserID: 1, ChannelID: 11, SentAt: now.Add(-time.Hour)},
		{MessageID: 3, UserID: 2, ChannelID: 10, SentAt: now.Add(-time.Hour)},
	}
	for i := range fixtures {
		if err := s.AddMessage(ctx, &fixtures[i]); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}

	byUser, err := s.MessagesByUser(ctx, 1, w)
	if err != nil {
		t.Fatalf("MessagesByUser: %v", err)
	}
	if len(byUser) != 2 {
		t.Errorf("user 1 has %d messages, want 2", len(byUser))
	}

	byChannel, err := s.MessagesByChannel(ctx, 10, w)
	if err != nil {
		t.Fatalf("MessagesByChannel: %v", err)
	}
	if len(byChannel) != 2 {
		t.Errorf("channel 10 has %d messages, want 2", len(byChannel))
	}
}

func TestUserMessagesPaging(t *testing.T) {
	s := newTestEvents(t)
	ctx := context.Background()
	now := time.Now().UTC()
	w := stats.NewWindow(now, 7)

	for i := int64(1); i <= 5; i++ {
		msg := model.Message{MessageID: i, UserID: 1, ChannelID: 10, SentAt: now.Add(-time.Duration(i) * time.Hour)}
		if err := s.AddMessage(ctx, &msg); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}

	page, err := s.UserMessages(ctx, 1, w, 2, 0)
	if err != nil {
		t.Fatalf("UserMessages: %v", err)
	}
	if len(page) != 2 || page[0].MessageID != 1 {
		t.Errorf("first page = %+v, want ids [1 2]", page)
	}

	page2, err := s.UserMessages(ctx, 1, w, 2, 2)
	if err != nil {
		t.Fatalf("UserMessages offset: %v", err)
	}
	if len(page2) != 2 || page2[0].MessageID != 3 {
		t.Errorf("second page = %+v, want ids [3 4]", page2)
	}

	if empty, _ := s.UserMessages(ctx, 1, w, 0, 0); len(empty) != 0 {
		t.Errorf("limit=0 returned %d messages, want 0", len(empty))
	}
}

func TestVoiceSessionLifecycle(t *testing.T) {
	s := newTestEvents(t)
	ctx := context.Background()
	now := time.Now().UTC()
	w := stats.NewWindow(now, 7)

	session := model.VoiceSession{UserID: 1, ChannelID: 20, JoinedAt: now.Add(-time.Hour)}
	if err := s.AddVoiceSession(ctx, &session); err != nil {
		t.Fatalf("AddVoiceSession: %v", err)
	}
	if session.ID == 0 {
		t.Fatal("expected non-zero session id")
	}

	open, err := s.VoiceSessionsByUser(ctx, 1, w)
	if err != nil {
		t.Fatalf("VoiceSessionsByUser: %v", err)
	}
	if len(open) != 1 || !open[0].Ongoing() {
		t.Fatalf("expected one ongoing session, got %+v", open)
	}

	if err := s.EndVoiceSession(ctx, session.ID, now); err != nil {
		t.Fatalf("EndVoiceSession: %v", err)
	}
	closed, err := s.VoiceSessionsByUser(ctx, 1, w)
	if err != nil {
		t.Fatalf("VoiceSessionsByUser: %v", err)
	}
	if len(closed) != 1 || closed[0].Ongoing() {
		t.Errorf("expected the session to be closed, got %+v", closed)
	}
}

func TestActivitiesAndMembers(t *testing.T) {
	s := newTestEvents(t)
	ctx := context.Background()
	now := time.Now().UTC()
	w := stats.NewWindow(now, 7)

	act := model.Activity{UserID: 1, Type: model.ActivityPlaying, Name: "chess", StartedAt: now.Add(-time.Hour)}
	if err := s.AddActivity(ctx, &act); err != nil {
		t.Fatalf("AddActivity: %v", err)
	}
	acts, err := s.ActivitiesByUser(ctx, 1, w)
	if err != nil {
		t.Fatalf("ActivitiesByUser: %v", err)
	}
	if len(acts) != 1 || acts[0].Name != "chess" {
		t.Errorf("activities = %+v", acts)
	}

	member := model.Member{UserID: 1, FirstSeen: now.Add(-time.Hour)}
	if err := s.AddMember(ctx, &member); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	// Replaying the same member is a no-op.
	if err := s.AddMember(ctx, &member); err != nil {
		t.Fatalf("AddMember replay: %v", err)
	}
	n, err := s.CountMembers(ctx, w)
	if err != nil {
		t.Fatalf("CountMembers: %v", err)
	}
	if n != 1 {
		t.Errorf("CountMembers = %d, want 1", n)
	}
}

func TestUserActivitiesPaging(t *testing.T) {
	s := newTestEvents(t)
	ctx := context.Background()
	now := time.Now().UTC()
	w := stats.NewWindow(now, 7)

	names := []string{"chess", "radio", "chess"}
	for i, name := range names {
		act := model.Activity{UserID: 1, Type: model.ActivityPlaying, Name: name, StartedAt: now.Add(-time.Duration(i+1) * time.Hour)}
		if err := s.AddActivity(ctx, &act); err != nil {
			t.Fatalf("AddActivity: %v", err)
		}
	}

	page, err := s.UserActivities(ctx, 1, w, 2, 1)
	if err != nil {
		t.Fatalf("UserActivities: %v", err)
	}
	if len(page) != 2 || page[0].Name != "radio" {
		t.Errorf("page = %+v, want [radio chess]", page)
	}

	if empty, _ := s.UserActivities(ctx, 1, w, 0, 0); len(empty) != 0 {
		t.Errorf("limit=0 returned %d activities, want 0", len(empty))
	}
}

func TestUserPresenceChanges(t *testing.T) {
	s := newTestEvents(t)
	ctx := context.Background()
	now := time.Now().UTC()
	w := stats.NewWindow(now, 7)

	earlier := now.Add(-2 * time.Hour)
	old := model.PresenceChange{UserID: 1, Status: model.StatusIdle, SetAt: now.Add(-3 * time.Hour), ChangedAt: &earlier}
	if err := s.AddPresenceChange(ctx, &old); err != nil {
		t.Fatalf("AddPresenceChange: %v", err)
	}
	current := model.PresenceChange{UserID: 1, Status: model.StatusOnline, SetAt: earlier}
	if err := s.AddPresenceChange(ctx, &current); err != nil {
		t.Fatalf("AddPresenceChange: %v", err)
	}
	other := model.PresenceChange{UserID: 2, Status: model.StatusDND, SetAt: now.Add(-time.Hour)}
	if err := s.AddPresenceChange(ctx, &other); err != nil {
		t.Fatalf("AddPresenceChange: %v", err)
	}

	changes, err := s.UserPresenceChanges(ctx, 1, w, 10, 0)
	if err != nil {
		t.Fatalf("UserPresenceChanges: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("len = %d, want 2", len(changes))
	}
	if changes[0].Status != model.StatusOnline || changes[0].ChangedAt != nil {
		t.Errorf("newest change = %+v, want current online status", changes[0])
	}

	if none, _ := s.UserPresenceChanges(ctx, 1, stats.NewWindow(now, 0), 10, 0); len(none) != 0 {
		t.Errorf("zero-day window returned %d changes, want 0", len(none))
	}
}

func TestUserCustomStatuses(t *testing.T) {
	s := newTestEvents(t)
	ctx := context.Background()
	now := time.Now().UTC()
	w := stats.NewWindow(now, 7)

	text := "brb"
	emoji := ":wave:"
	fixtures := []model.CustomStatus{
		{UserID: 1, Text: &text, SetAt: now.Add(-2 * time.Hour)},
		{UserID: 1, Emoji: &emoji, SetAt: now.Add(-time.Hour)},
		{UserID: 2, Text: &text, SetAt: now.Add(-time.Hour)},
	}
	for i := range fixtures {
		if err := s.AddCustomStatus(ctx, &fixtures[i]); err != nil {
			t.Fatalf("AddCustomStatus: %v", err)
		}
	}

	statuses, err := s.UserCustomStatuses(ctx, 1, w, 10, 0)
	if err != nil {
		t.Fatalf("UserCustomStatuses: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("len = %d, want 2", len(statuses))
	}
	if statuses[0].Emoji == nil || *statuses[0].Emoji != ":wave:" {
		t.Errorf("newest status = %+v, want the emoji one first", statuses[0])
	}
}

func TestListMembers(t *testing.T) {
	s := newTestEvents(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := int64(1); i <= 3; i++ {
		m := model.Member{UserID: i, FirstSeen: now.Add(-time.Duration(i) * time.Hour)}
		if err := s.AddMember(ctx, &m); err != nil {
			t.Fatalf("AddMember: %v", err)
		}
	}

	members, err := s.ListMembers(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 2 || members[0].UserID != 1 {
		t.Errorf("members = %+v, want users [1 2] (most recently seen first)", members)
	}

	rest, err := s.ListMembers(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListMembers offset: %v", err)
	}
	if len(rest) != 1 || rest[0].UserID != 3 {
		t.Errorf("rest = %+v, want user 3", rest)
	}

	if empty, _ := s.ListMembers(ctx, 0, 0); len(empty) != 0 {
		t.Errorf("limit=0 returned %d members, want 0", len(empty))
	}
}
