package models

import "time"

// StatsEventType names what a StatsEvent reports.
type StatsEventType string

// StatsEventType constants, one per fetch kind.
const (
	EventChannelStats    StatsEventType = "channel_stats"
	EventSupergroupStats StatsEventType = "supergroup_stats"
	EventGraph           StatsEventType = "graph"
	EventMessageStats    StatsEventType = "message_stats"
	EventStoryStats      StatsEventType = "story_stats"
	EventForwards        StatsEventType = "forwards"
	EventBoostStatus     StatsEventType = "boost_status"
	EventBoosts          StatsEventType = "boosts"
)

// StatsEvent announces a completed fetch.
type StatsEvent struct {
	ID        string         `json:"id"`
	Type      StatsEventType `json:"type"`
	ChannelID int64          `json:"channel_id"`
	At        time.Time      `json:"at"`
	Payload   any            `json:"payload,omitempty"`
}
