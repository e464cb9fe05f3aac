package stats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/guildsight/guildsight/internal/model"
)

// Source provides read access to the raw event collections. Authorization
// has already been cleared upstream; nothing here knows about credentials.
// Implementations scope by entity and window but perform no aggregation.
type Source interface {
	Messages(ctx context.Context, w Window) ([]model.Message, error)
	MessagesByUser(ctx context.Context, userID int64, w Window) ([]model.Message, error)
	MessagesByChannel(ctx context.Context, channelID int64, w Window) ([]model.Message, error)
	VoiceSessions(ctx context.Context, w Window) ([]model.VoiceSession, error)
	VoiceSessionsByUser(ctx context.Context, userID int64, w Window) ([]model.VoiceSession, error)
	Activities(ctx context.Context, w Window) ([]model.Activity, error)
	ActivitiesByUser(ctx context.Context, userID int64, w Window) ([]model.Activity, error)
	CountMembers(ctx context.Context, w Window) (int, error)
}

// Engine computes derived aggregates from raw events over a trailing
// window. Every call recomputes from the raw records; nothing is cached
// or persisted. The engine holds no mutable state, so calls may run
// concurrently.
type Engine struct {
	src Source
	now func() time.Time
}

// NewEngine creates an engine over the given event source.
func NewEngine(src Source) *Engine {
	return &Engine{src: src, now: func() time.Time { return time.Now().UTC() }}
}

// UserStats composes the per-member aggregates over one window. The
// primitives are independent; each is computed from the collections
// fetched once for this call.
func (e *Engine) UserStats(ctx context.Context, userID int64, days int) (*model.UserStats, error) {
	now := e.now()
	w := NewWindow(now, days)

	msgs, err := e.src.MessagesByUser(ctx, userID, w)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	msgs = FilterByTime(msgs, w, func(m model.Message) time.Time { return m.SentAt })

	sessions, err := e.src.VoiceSessionsByUser(ctx, userID, w)
	if err != nil {
		return nil, fmt.Errorf("load voice sessions: %w", err)
	}

	acts, err := e.src.ActivitiesByUser(ctx, userID, w)
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}
	acts = FilterByTime(acts, w, func(a model.Activity) time.Time { return a.StartedAt })

	sentTimes := make([]time.Time, len(msgs))
	channels := make([]string, len(msgs))
	for i, m := range msgs {
		sentTimes[i] = m.SentAt
		channels[i] = strconv.FormatInt(m.ChannelID, 10)
	}
	names := make([]string, len(acts))
	for i, a := range acts {
		names[i] = a.Name
	}

	joined := func(v model.VoiceSession) time.Time { return v.JoinedAt }
	left := func(v model.VoiceSession) *time.Time { return v.LeftAt }

	return &model.UserStats{
		UserID:                       strconv.FormatInt(userID, 10),
		TotalMessages:                len(msgs),
		TotalActivities:              len(acts),
		VoiceMinutes:                 int64(CompletedDuration(sessions, w, joined, left).Minutes()),
		VoiceMinutesIncludingOngoing: int64(DurationIncludingOngoing(sessions, w, now, joined, left).Minutes()),
		MostActiveHour:               MostActiveHour(sentTimes),
		FavoriteActivity:             Mode(names),
		MostUsedChannel:              Mode(channels),
	}, nil
}

// ChannelStats composes the per-channel aggregates over one window.
func (e *Engine) ChannelStats(ctx context.Context, channelID int64, days int) (*model.ChannelStats, error) {
	w := NewWindow(e.now(), days)

	msgs, err := e.src.MessagesByChannel(ctx, channelID, w)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	msgs = FilterByTime(msgs, w, func(m model.Message) time.Time { return m.SentAt })

	return channelStatsFromMessages(strconv.FormatInt(channelID, 10), msgs), nil
}

// TopChannels ranks channels by message count over the window, truncated
// to limit. Ties rank the lexicographically smaller channel id first.
func (e *Engine) TopChannels(ctx context.Context, days, limit int) ([]model.ChannelStats, error) {
	w := NewWindow(e.now(), days)

	msgs, err := e.src.Messages(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	msgs = FilterByTime(msgs, w, func(m model.Message) time.Time { return m.SentAt })

	byChannel := make(map[string][]model.Message)
	counts := make(map[string]int)
	for _, m := range msgs {
		id := strconv.FormatInt(m.ChannelID, 10)
		byChannel[id] = append(byChannel[id], m)
		counts[id]++
	}

	ranked := TopK(counts, limit)
	out := make([]model.ChannelStats, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, *channelStatsFromMessages(r.Key, byChannel[r.Key]))
	}
	return out, nil
}

// ServerStats composes the community-wide aggregates over one window.
func (e *Engine) ServerStats(ctx context.Context, days int) (*model.ServerStats, error) {
	now := e.now()
	w := NewWindow(now, days)

	members, err := e.src.CountMembers(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}

	msgs, err := e.src.Messages(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	msgs = FilterByTime(msgs, w, func(m model.Message) time.Time { return m.SentAt })

	sessions, err := e.src.VoiceSessions(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("load voice sessions: %w", err)
	}

	acts, err := e.src.Activities(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}
	acts = FilterByTime(acts, w, func(a model.Activity) time.Time { return a.StartedAt })

	channels := make([]string, len(msgs))
	for i, m := range msgs {
		channels[i] = strconv.FormatInt(m.ChannelID, 10)
	}
	names := make([]string, len(acts))
	for i, a := range acts {
		names[i] = a.Name
	}

	joined := func(v model.VoiceSession) time.Time { return v.JoinedAt }
	left := func(v model.VoiceSession) *time.Time { return v.LeftAt }

	return &model.ServerStats{
		TotalMembers:               members,
		TotalMessages:              len(msgs),
		TotalActivities:            len(acts),
		VoiceHours:                 CompletedDuration(sessions, w, joined, left).Hours(),
		VoiceHoursIncludingOngoing: DurationIncludingOngoing(sessions, w, now, joined, left).Hours(),
		MostActiveChannelID:        Mode(channels),
		MostCommonActivity:         Mode(names),
	}, nil
}

func channelStatsFromMessages(channelID string, msgs []model.Message) *model.ChannelStats {
	users := make([]string, len(msgs))
	unique := make(map[int64]struct{}, len(msgs))
	for i, m := range msgs {
		users[i] = strconv.FormatInt(m.UserID, 10)
		unique[m.UserID] = struct{}{}
	}
	return &model.ChannelStats{
		ChannelID:        channelID,
		TotalMessages:    len(msgs),
		UniqueUsers:      len(unique),
		MostActiveUserID: Mode(users),
	}
}
