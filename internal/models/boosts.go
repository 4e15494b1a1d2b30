package models

import "time"

// BoostsOverview holds the counters of a channel's boost status.
type BoostsOverview struct {
	Mine                    int     `json:"mine"`
	Level                   int     `json:"level"`
	BoostCount              int     `json:"boost_count"`
	GiftBoostCount          int     `json:"gift_boost_count"`
	CurrentLevelBoostCount  int     `json:"current_level_boost_count"`
	NextLevelBoostCount     int     `json:"next_level_boost_count"`
	PremiumMemberCount      int     `json:"premium_member_count"`
	PremiumMemberPercentage float64 `json:"premium_member_percentage"`
}

// BoostPrepaidGiveaway is a giveaway paid for but not launched yet.
type BoostPrepaidGiveaway struct {
	ID       int64     `json:"id"`
	Months   int       `json:"months,omitempty"`
	Stars    int64     `json:"stars,omitempty"`
	Boosts   int       `json:"boosts,omitempty"`
	Quantity int       `json:"quantity"`
	Date     time.Time `json:"date"`
}

// GiftCodeLink points at the gift code a boost was applied with.
type GiftCodeLink struct {
	Text string `json:"text"`
	Link string `json:"link"`
	Slug string `json:"slug"`
}

// Boost is a single boost applied to a channel.
type Boost struct {
	IsGift             bool         `json:"is_gift"`
	IsGiveaway         bool         `json:"is_giveaway"`
	IsUnclaimed        bool         `json:"is_unclaimed"`
	ID                 string       `json:"id"`
	UserID             int64        `json:"user_id,omitempty"`
	GiveawayMessage    FullMsgID    `json:"giveaway_message,omitempty"`
	Date               time.Time    `json:"date"`
	Expiration         time.Time    `json:"expiration"`
	ExpiresAfterMonths int          `json:"expires_after_months"`
	GiftCodeLink       GiftCodeLink `json:"gift_code_link,omitempty"`
	Multiplier         int          `json:"multiplier,omitempty"`
	Stars              int64        `json:"stars,omitempty"`
}

// BoostsToken is the continuation of a boosts listing.
type BoostsToken struct {
	Next  string `json:"next,omitempty"`
	Gifts bool   `json:"gifts"`
}

// BoostsListSlice is one page of boosts.
type BoostsListSlice struct {
	List            []Boost     `json:"list"`
	MultipliedTotal int         `json:"multiplied_total"`
	AllLoaded       bool        `json:"all_loaded"`
	Token           BoostsToken `json:"token"`
}

// BoostStatus is the boost program state of a channel.
type BoostStatus struct {
	Overview         BoostsOverview         `json:"overview"`
	Link             string                 `json:"link"`
	PrepaidGiveaway  []BoostPrepaidGiveaway `json:"prepaid_giveaway,omitempty"`
	FirstSliceBoosts BoostsListSlice        `json:"first_slice_boosts"`
	FirstSliceGifts  BoostsListSlice        `json:"first_slice_gifts"`
}
