package models

// PlayerStatus is the lifecycle of a player in the auction pool
type PlayerStatus string

const (
	PlayerStatusAvailable PlayerStatus = "available"
	PlayerStatusInAuction PlayerStatus = "in_auction"
	PlayerStatusSold      PlayerStatus = "sold"
	PlayerStatusUnsold    PlayerStatus = "unsold"
	PlayerStatusRetained  PlayerStatus = "retained"
)

// Player represents a player that can go under the hammer
type Player struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Country   string       `json:"country"`
	Role      string       `json:"role"`     // 'Batsman', 'Bowler', 'All-Rounder', 'Wicket-Keeper'
	Category  string       `json:"category"` // marquee / capped / uncapped set
	ImageURL  *string      `json:"image_url,omitempty"`
	BasePrice int64        `json:"base_price"`
	SoldPrice *int64       `json:"sold_price,omitempty"`
	Status    PlayerStatus `json:"status"`
	TeamID    *string      `json:"team_id,omitempty"`
}

// Clone returns a deep copy of the player
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	c := *p
	if p.ImageURL != nil {
		v := *p.ImageURL
		c.ImageURL = &v
	}
	if p.SoldPrice != nil {
		v := *p.SoldPrice
		c.SoldPrice = &v
	}
	if p.TeamID != nil {
		v := *p.TeamID
		c.TeamID = &v
	}
	return &c
}

// ClonePlayers deep copies a player list, preserving nil
func ClonePlayers(players []Player) []Player {
	if players == nil {
		return nil
	}
	out := make([]Player, len(players))
	for i := range players {
		out[i] = *players[i].Clone()
	}
	return out
}
