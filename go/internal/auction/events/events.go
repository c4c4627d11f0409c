package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sevahub/templeauction/go/internal/models"
)

// Envelope is the wire shape of every real-time message
type Envelope struct {
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Server emit time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType names a real-time event on the wire
type EventType string

const (
	EventTypeFullState     EventType = "auction:state"
	EventTypeNewBid        EventType = "auction:new_bid"
	EventTypePlayerSold    EventType = "auction:player_sold"
	EventTypePlayerChanged EventType = "auction:player_changed"
	EventTypePlayerUnsold  EventType = "auction:player_unsold"
	EventTypeAuctionLive   EventType = "auction:live"
	EventTypeAuctionReset  EventType = "auction:reset"
)

// Event is the closed set of real-time events the reducer understands.
// Only types in this package implement it.
type Event interface {
	Type() EventType
	isEvent()
}

// FullState carries the whole auction state. Bids is nil when the server
// sent no history.
type FullState struct {
	State models.AuctionState
}

// NewBid announces an accepted bid
type NewBid struct {
	Bid models.Bid
}

// PlayerSold announces the hammer falling on a player
type PlayerSold struct {
	PlayerID  string `json:"player_id"`
	TeamID    string `json:"team_id"`
	SoldPrice int64  `json:"sold_price"`
}

// PlayerChanged announces the next player under the hammer
type PlayerChanged struct {
	Player models.Player `json:"player"`
}

// PlayerUnsold announces a player going unsold
type PlayerUnsold struct {
	PlayerID string `json:"player_id"`
}

// AuctionLive announces the auction going live
type AuctionLive struct {
	Message string `json:"message,omitempty"`
}

// AuctionReset announces the host resetting the auction
type AuctionReset struct {
	Reason string `json:"reason,omitempty"`
}

func (FullState) Type() EventType     { return EventTypeFullState }
func (NewBid) Type() EventType        { return EventTypeNewBid }
func (PlayerSold) Type() EventType    { return EventTypePlayerSold }
func (PlayerChanged) Type() EventType { return EventTypePlayerChanged }
func (PlayerUnsold) Type() EventType  { return EventTypePlayerUnsold }
func (AuctionLive) Type() EventType   { return EventTypeAuctionLive }
func (AuctionReset) Type() EventType  { return EventTypeAuctionReset }

func (FullState) isEvent()     {}
func (NewBid) isEvent()        {}
func (PlayerSold) isEvent()    {}
func (PlayerChanged) isEvent() {}
func (PlayerUnsold) isEvent()  {}
func (AuctionLive) isEvent()   {}
func (AuctionReset) isEvent()  {}

// ErrUnknownEventType is returned by Decode for types outside the catalogue
type ErrUnknownEventType struct {
	Type EventType
}

func (e *ErrUnknownEventType) Error() string {
	return fmt.Sprintf("unknown event type: %s", e.Type)
}

// Decode parses a raw message into a typed event
func Decode(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}
	return DecodeEnvelope(env)
}

// DecodeEnvelope parses the envelope's data into the matching event
func DecodeEnvelope(env Envelope) (Event, error) {
	switch env.Type {
	case EventTypeFullState:
		var state models.AuctionState
		if err := unmarshalData(env, &state); err != nil {
			return nil, err
		}
		// A full state always names its status; anything less would wipe the snapshot.
		if state.Status == "" {
			return nil, fmt.Errorf("%s: missing status", env.Type)
		}
		return FullState{State: state}, nil

	case EventTypeNewBid:
		var bid models.Bid
		if err := unmarshalData(env, &bid); err != nil {
			return nil, err
		}
		if bid.TeamID == "" && bid.Team != nil {
			bid.TeamID = bid.Team.ID
		}
		if bid.TeamID == "" {
			return nil, fmt.Errorf("%s: bid has no team", env.Type)
		}
		return NewBid{Bid: bid}, nil

	case EventTypePlayerSold:
		var payload PlayerSold
		if err := unmarshalData(env, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypePlayerChanged:
		var payload PlayerChanged
		if err := unmarshalData(env, &payload); err != nil {
			return nil, err
		}
		if payload.Player.ID == "" {
			return nil, fmt.Errorf("%s: missing player", env.Type)
		}
		return payload, nil

	case EventTypePlayerUnsold:
		var payload PlayerUnsold
		if err := unmarshalData(env, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeAuctionLive:
		var payload AuctionLive
		if err := unmarshalData(env, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeAuctionReset:
		var payload AuctionReset
		if err := unmarshalData(env, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, &ErrUnknownEventType{Type: env.Type}
	}
}

// Encode wraps an event in the wire envelope
func Encode(ev Event, at time.Time) ([]byte, error) {
	var data any
	switch e := ev.(type) {
	case FullState:
		data = e.State
	case NewBid:
		data = e.Bid
	default:
		data = e
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", ev.Type(), err)
	}
	return json.Marshal(Envelope{Type: ev.Type(), Timestamp: at, Data: raw})
}

func unmarshalData(env Envelope, v any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
	}
	return nil
}
