package models

// ForwardsToken is the continuation of a public forwards listing.
// Offset is the server supplied cursor and the only part sent back.
// Rate is the next_rate of a list-shaped answer; it is only compared with
// the next answer's rate, and an unchanged rate ends the listing.
type ForwardsToken struct {
	Offset string `json:"offset,omitempty"`
	Rate   int    `json:"rate,omitempty"`
}

// IsEmpty reports whether the token addresses the first page.
func (t ForwardsToken) IsEmpty() bool {
	return t.Offset == "" && t.Rate == 0
}

// PublicForwardsSlice is one page of public forwards of a message or story.
type PublicForwardsSlice struct {
	List      []RecentPostID `json:"list"`
	Total     int            `json:"total"`
	AllLoaded bool           `json:"all_loaded"`
	Token     ForwardsToken  `json:"token"`
}
