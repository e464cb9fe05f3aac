package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/guildsight/guildsight/internal/events"
	"github.com/guildsight/guildsight/internal/model"
	"github.com/guildsight/guildsight/internal/stats"
)

// AnalyticsHandler serves the derived community statistics and the raw
// event listings behind them. All endpoints accept a ?days= trailing
// window (default 30); days=0 is a legal empty window that yields zero
// counts and absent modes.
type AnalyticsHandler struct {
	engine *stats.Engine
	events *events.Store
	now    func() time.Time
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(engine *stats.Engine, ev *events.Store) *AnalyticsHandler {
	return &AnalyticsHandler{
		engine: engine,
		events: ev,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// UserStats returns one member's aggregates over the window.
// GET /api/v1/users/{userID}/stats
func (h *AnalyticsHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(chi.URLParam(r, "userID"), "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	days, err := queryInt(r, "days", defaultAnalyticsDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := h.engine.UserStats(r.Context(), userID, days)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UserMessages pages one member's messages in the window, newest first.
// GET /api/v1/users/{userID}/messages
func (h *AnalyticsHandler) UserMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(chi.URLParam(r, "userID"), "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	days, limit, offset, err := h.listingParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	window := stats.NewWindow(h.now(), days)
	msgs, err := h.events.UserMessages(r.Context(), userID, window, limit, offset)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: msgs,
		Meta:     &model.ResponseMeta{Count: len(msgs), Limit: limit, Offset: offset},
	})
}

// UserVoiceSessions pages one member's voice sessions in the window,
// newest first. Ongoing sessions appear with a null left_at.
// GET /api/v1/users/{userID}/voice-sessions
func (h *AnalyticsHandler) UserVoiceSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(chi.URLParam(r, "userID"), "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	days, limit, offset, err := h.listingParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	window := stats.NewWindow(h.now(), days)
	sessions, err := h.events.UserVoiceSessions(r.Context(), userID, window, limit, offset)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}
	if sessions == nil {
		sessions = []model.VoiceSession{}
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: sessions,
		Meta:     &model.ResponseMeta{Count: len(sessions), Limit: limit, Offset: offset},
	})
}

// UserActivities pages one member's activities in the window, newest
// first. Ongoing activities appear with a null ended_at.
// GET /api/v1/users/{userID}/activities
func (h *AnalyticsHandler) UserActivities(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(chi.URLParam(r, "userID"), "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	days, limit, offset, err := h.listingParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	window := stats.NewWindow(h.now(), days)
	acts, err := h.events.UserActivities(r.Context(), userID, window, limit, offset)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}
	if acts == nil {
		acts = []model.Activity{}
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: acts,
		Meta:     &model.ResponseMeta{Count: len(acts), Limit: limit, Offset: offset},
	})
}

// UserPresence pages one member's presence transitions in the window,
// newest first. The current status has a null changed_at.
// GET /api/v1/users/{userID}/presence
func (h *AnalyticsHandler) UserPresence(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(chi.URLParam(r, "userID"), "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	days, limit, offset, err := h.listingParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	window := stats.NewWindow(h.now(), days)
	changes, err := h.events.UserPresenceChanges(r.Context(), userID, window, limit, offset)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}
	if changes == nil {
		changes = []model.PresenceChange{}
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: changes,
		Meta:     &model.ResponseMeta{Count: len(changes), Limit: limit, Offset: offset},
	})
}

// UserCustomStatuses pages one member's custom statuses in the window,
// newest first.
// GET /api/v1/users/{userID}/custom-statuses
func (h *AnalyticsHandler) UserCustomStatuses(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(chi.URLParam(r, "userID"), "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	days, limit, offset, err := h.listingParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	window := stats.NewWindow(h.now(), days)
	statuses, err := h.events.UserCustomStatuses(r.Context(), userID, window, limit, offset)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}
	if statuses == nil {
		statuses = []model.CustomStatus{}
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: statuses,
		Meta:     &model.ResponseMeta{Count: len(statuses), Limit: limit, Offset: offset},
	})
}

// Members pages the member directory, most recently seen first.
// GET /api/v1/members
func (h *AnalyticsHandler) Members(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultPageLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit = clampInt(limit, 0, maxPageLimit)

	members, err := h.events.ListMembers(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}
	if members == nil {
		members = []model.Member{}
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: members,
		Meta:     &model.ResponseMeta{Count: len(members), Limit: limit, Offset: offset},
	})
}

// TopChannels ranks channels by message volume over the window.
// GET /api/v1/channels/stats
func (h *AnalyticsHandler) TopChannels(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", defaultAnalyticsDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", defaultPageLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit = clampInt(limit, 0, maxPageLimit)

	ranked, err := h.engine.TopChannels(r.Context(), days, limit)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}
	if ranked == nil {
		ranked = []model.ChannelStats{}
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: ranked,
		Meta:     &model.ResponseMeta{Count: len(ranked), Limit: limit},
	})
}

// ChannelStats returns one channel's aggregates over the window.
// GET /api/v1/channels/{channelID}/stats
func (h *AnalyticsHandler) ChannelStats(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathInt64(chi.URLParam(r, "channelID"), "channelID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	days, err := queryInt(r, "days", defaultAnalyticsDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := h.engine.ChannelStats(r.Context(), channelID, days)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ServerStats returns the community-wide aggregates over the window.
// GET /api/v1/server/stats
func (h *AnalyticsHandler) ServerStats(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", defaultAnalyticsDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := h.engine.ServerStats(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// listingParams parses the shared days/limit/offset parameters for the
// raw event listings.
func (h *AnalyticsHandler) listingParams(r *http.Request) (days, limit, offset int, err error) {
	if days, err = queryInt(r, "days", defaultAnalyticsDays); err != nil {
		return
	}
	if limit, err = queryInt(r, "limit", defaultPageLimit); err != nil {
		return
	}
	if offset, err = queryInt(r, "offset", 0); err != nil {
		return
	}
	limit = clampInt(limit, 0, maxPageLimit)
	return
}
