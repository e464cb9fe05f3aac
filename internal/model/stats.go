package model

// Derived aggregates. These are computed per request from raw events and
// a time window; nothing here is ever persisted.

// UserStats is the per-member view over one window. Pointer fields are
// nil when the window holds no qualifying events: an absent mode is a
// valid result, not a default.
type UserStats struct {
	UserID string `json:"user_id"`

	TotalMessages   int `json:"total_messages"`
	TotalActivities int `json:"total_activities"`

	// VoiceMinutes counts completed sessions only. The ongoing-inclusive
	// figure clamps open sessions at the evaluation time and is reported
	// separately so the two are never conflated.
	VoiceMinutes                 int64 `json:"voice_minutes"`
	VoiceMinutesIncludingOngoing int64 `json:"voice_minutes_including_ongoing"`

	MostActiveHour   *int    `json:"most_active_hour"`
	FavoriteActivity *string `json:"favorite_activity"`
	MostUsedChannel  *string `json:"most_used_channel"`
}

// ChannelStats is the per-channel view over one window.
type ChannelStats struct {
	ChannelID string `json:"channel_id"`

	TotalMessages    int     `json:"total_messages"`
	UniqueUsers      int     `json:"unique_users"`
	MostActiveUserID *string `json:"most_active_user_id"`
}

// ServerStats is the community-wide view over one window.
type ServerStats struct {
	TotalMembers    int `json:"total_members"`
	TotalMessages   int `json:"total_messages"`
	TotalActivities int `json:"total_activities"`

	VoiceHours                 float64 `json:"voice_hours"`
	VoiceHoursIncludingOngoing float64 `json:"voice_hours_including_ongoing"`

	MostActiveChannelID *string `json:"most_active_channel_id"`
	MostCommonActivity  *string `json:"most_common_activity"`
}
