package models

import "time"

// Bid is an immutable record of one accepted bid
type Bid struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"player_id,omitempty"`
	Amount    int64     `json:"amount"`
	TeamID    string    `json:"team_id"`
	Team      *Team     `json:"team,omitempty"` // denormalized for display
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of the bid
func (b Bid) Clone() Bid {
	b.Team = b.Team.Clone()
	return b
}

// CloneBids deep copies a bid history, preserving nil
func CloneBids(bids []Bid) []Bid {
	if bids == nil {
		return nil
	}
	out := make([]Bid, len(bids))
	for i := range bids {
		out[i] = bids[i].Clone()
	}
	return out
}
