package models

// Team represents an auction franchise and its purse
type Team struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	ShortName       string  `json:"short_name"`
	Color           string  `json:"color"`
	LogoURL         *string `json:"logo_url,omitempty"`
	Budget          int64   `json:"budget"`
	RemainingBudget int64   `json:"remaining_budget"`
	PlayerCount     int     `json:"player_count"`
	ForeignCount    int     `json:"foreign_count"`
	MaxPlayers      int     `json:"max_players"`
	MaxForeign      int     `json:"max_foreign"`
}

// Spent returns how much of the purse has been used
func (t *Team) Spent() int64 {
	return t.Budget - t.RemainingBudget
}

// CanAfford reports whether the remaining purse covers amount
func (t *Team) CanAfford(amount int64) bool {
	return amount <= t.RemainingBudget
}

// SquadFull reports whether the roster cap has been reached
func (t *Team) SquadFull() bool {
	return t.MaxPlayers > 0 && t.PlayerCount >= t.MaxPlayers
}

// Clone returns a deep copy so callers can't mutate store-owned data
func (t *Team) Clone() *Team {
	if t == nil {
		return nil
	}
	c := *t
	if t.LogoURL != nil {
		logo := *t.LogoURL
		c.LogoURL = &logo
	}
	return &c
}
