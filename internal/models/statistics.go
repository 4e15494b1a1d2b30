package models

import "math"

// StatisticalValue is a counter together with its value in the previous period.
type StatisticalValue struct {
	Value                float64 `json:"value"`
	PreviousValue        float64 `json:"previous_value"`
	GrowthRatePercentage float64 `json:"growth_rate_percentage"`
}

// NewStatisticalValue computes the growth rate between two periods.
// The rate is zero when there is no previous value and is never negative.
func NewStatisticalValue(current, previous float64) StatisticalValue {
	v := StatisticalValue{
		Value:         current,
		PreviousValue: previous,
	}
	if previous != 0 {
		v.GrowthRatePercentage = math.Abs((current - previous) / previous * 100)
	}
	return v
}

// GraphKind tells which variant of a StatisticalGraph is populated.
type GraphKind string

// GraphKind constants enumerate the graph variants.
const (
	GraphEmpty GraphKind = "empty"
	GraphChart GraphKind = "chart"
	GraphAsync GraphKind = "async"
	GraphError GraphKind = "error"
)

// StatisticalGraph is either decoded chart data, a token awaiting zoom, or an error.
// A decoded chart may also carry the token used to zoom into it.
type StatisticalGraph struct {
	Chart     *StatisticalChart `json:"chart,omitempty"`
	ZoomToken string            `json:"zoom_token,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Kind returns the populated variant.
func (g StatisticalGraph) Kind() GraphKind {
	switch {
	case g.Error != "":
		return GraphError
	case g.Chart != nil:
		return GraphChart
	case g.ZoomToken != "":
		return GraphAsync
	default:
		return GraphEmpty
	}
}

// ErrorGraph builds the error variant.
func ErrorGraph(message string) StatisticalGraph {
	return StatisticalGraph{Error: message}
}

// MessageInteractionInfo holds counters of a single message or story.
type MessageInteractionInfo struct {
	MessageID      int `json:"message_id,omitempty"`
	StoryID        int `json:"story_id,omitempty"`
	ViewsCount     int `json:"views"`
	ForwardsCount  int `json:"forwards"`
	ReactionsCount int `json:"reactions"`
}

// MessageSenderInfo is an entry of the top senders list.
type MessageSenderInfo struct {
	UserID                int64 `json:"user_id"`
	SentMessageCount      int   `json:"sent_message_count"`
	AverageCharacterCount int   `json:"average_character_count"`
}

// AdministratorActionsInfo is an entry of the top administrators list.
type AdministratorActionsInfo struct {
	UserID              int64 `json:"user_id"`
	DeletedMessageCount int   `json:"deleted_message_count"`
	BannedUserCount     int   `json:"banned_user_count"`
	RestrictedUserCount int   `json:"restricted_user_count"`
}

// InviterInfo is an entry of the top inviters list.
type InviterInfo struct {
	UserID           int64 `json:"user_id"`
	AddedMemberCount int   `json:"added_member_count"`
}

// ChannelStatistics is the aggregate snapshot of a broadcast channel.
type ChannelStatistics struct {
	StartDate int `json:"start_date"`
	EndDate   int `json:"end_date"`

	MemberCount       StatisticalValue `json:"member_count"`
	MeanViewCount     StatisticalValue `json:"mean_view_count"`
	MeanShareCount    StatisticalValue `json:"mean_share_count"`
	MeanReactionCount StatisticalValue `json:"mean_reaction_count"`

	MeanStoryViewCount     StatisticalValue `json:"mean_story_view_count"`
	MeanStoryShareCount    StatisticalValue `json:"mean_story_share_count"`
	MeanStoryReactionCount StatisticalValue `json:"mean_story_reaction_count"`

	EnabledNotificationsPercentage float64 `json:"enabled_notifications_percentage"`

	MemberCountGraph             StatisticalGraph `json:"member_count_graph"`
	JoinGraph                    StatisticalGraph `json:"join_graph"`
	MuteGraph                    StatisticalGraph `json:"mute_graph"`
	ViewCountByHourGraph         StatisticalGraph `json:"view_count_by_hour_graph"`
	ViewCountBySourceGraph       StatisticalGraph `json:"view_count_by_source_graph"`
	JoinBySourceGraph            StatisticalGraph `json:"join_by_source_graph"`
	LanguageGraph                StatisticalGraph `json:"language_graph"`
	MessageInteractionGraph      StatisticalGraph `json:"message_interaction_graph"`
	InstantViewInteractionGraph  StatisticalGraph `json:"instant_view_interaction_graph"`
	ReactionsByEmotionGraph      StatisticalGraph `json:"reactions_by_emotion_graph"`
	StoryInteractionsGraph       StatisticalGraph `json:"story_interactions_graph"`
	StoryReactionsByEmotionGraph StatisticalGraph `json:"story_reactions_by_emotion_graph"`

	RecentMessageInteractions []MessageInteractionInfo `json:"recent_message_interactions"`
}

// SupergroupStatistics is the aggregate snapshot of a supergroup.
type SupergroupStatistics struct {
	StartDate int `json:"start_date"`
	EndDate   int `json:"end_date"`

	MemberCount  StatisticalValue `json:"member_count"`
	MessageCount StatisticalValue `json:"message_count"`
	ViewerCount  StatisticalValue `json:"viewer_count"`
	SenderCount  StatisticalValue `json:"sender_count"`

	MemberCountGraph    StatisticalGraph `json:"member_count_graph"`
	JoinGraph           StatisticalGraph `json:"join_graph"`
	JoinBySourceGraph   StatisticalGraph `json:"join_by_source_graph"`
	LanguageGraph       StatisticalGraph `json:"language_graph"`
	MessageContentGraph StatisticalGraph `json:"message_content_graph"`
	ActionGraph         StatisticalGraph `json:"action_graph"`
	DayGraph            StatisticalGraph `json:"day_graph"`
	WeekGraph           StatisticalGraph `json:"week_graph"`

	TopSenders        []MessageSenderInfo        `json:"top_senders"`
	TopAdministrators []AdministratorActionsInfo `json:"top_administrators"`
	TopInviters       []InviterInfo              `json:"top_inviters"`
}

// MessageStatistics is the combined result for a single message or story.
type MessageStatistics struct {
	MessageInteractionGraph StatisticalGraph `json:"message_interaction_graph"`
	ReactionsByEmotionGraph StatisticalGraph `json:"reactions_by_emotion_graph"`
	PublicForwards          int              `json:"public_forwards"`
	PrivateForwards         int              `json:"private_forwards"`
	Views                   int              `json:"views"`
	Reactions               int              `json:"reactions"`
}
