// Package viewer is the local bridge between a browser UI and an auction
// session: REST for reads and bids, a websocket for pushed updates.
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sevahub/templeauction/go/clients/auction_api_client"
	"github.com/sevahub/templeauction/go/internal/auction/bidding"
	"github.com/sevahub/templeauction/go/internal/auction/events"
	"github.com/sevahub/templeauction/go/internal/models"
)

// Session is what the viewer needs from an auction session
type Session interface {
	Snapshot() models.Snapshot
	Subscribe() (<-chan struct{}, func())
	Notifications() <-chan events.Notification
	Connected() bool
	NextBidAmount() int64
	BidOptions() []int64
	CheckBid() bidding.Guard
	PlaceBid(ctx context.Context, amount int64) (*models.Bid, error)
}

// SnapshotResponse is everything the UI renders in one payload
type SnapshotResponse struct {
	models.Snapshot
	Connected  bool          `json:"connected"`
	NextBid    int64         `json:"next_bid"`
	BidOptions []int64       `json:"bid_options"`
	Guard      bidding.Guard `json:"guard,omitempty"`
}

// BidOptionsResponse backs the quick-bid buttons
type BidOptionsResponse struct {
	NextBid int64         `json:"next_bid"`
	Options []int64       `json:"options"`
	Guard   bidding.Guard `json:"guard,omitempty"`
}

// PlaceBidRequest is the body of POST /api/bid. A zero amount bids the
// next ladder amount.
type PlaceBidRequest struct {
	Amount int64 `json:"amount"`
}

// ErrorResponse carries a message the UI shows as-is
type ErrorResponse struct {
	Message string `json:"message"`
}

func buildSnapshot(s Session) SnapshotResponse {
	return SnapshotResponse{
		Snapshot:   s.Snapshot(),
		Connected:  s.Connected(),
		NextBid:    s.NextBidAmount(),
		BidOptions: s.BidOptions(),
		Guard:      s.CheckBid(),
	}
}

// Handler serves the viewer REST routes
type Handler struct {
	session Session
}

// NewHandler creates a viewer handler
func NewHandler(session Session) *Handler {
	return &Handler{session: session}
}

// HandleGetSnapshot handles GET /api/snapshot
func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, buildSnapshot(h.session))
}

// HandleGetBidOptions handles GET /api/bid/options
func (h *Handler) HandleGetBidOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, BidOptionsResponse{
		NextBid: h.session.NextBidAmount(),
		Options: h.session.BidOptions(),
		Guard:   h.session.CheckBid(),
	})
}

// HandlePlaceBid handles POST /api/bid
func (h *Handler) HandlePlaceBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid bid request"})
		return
	}
	if req.Amount < 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "amount must not be negative"})
		return
	}

	bid, err := h.session.PlaceBid(r.Context(), req.Amount)
	if err != nil {
		status := statusForBidError(err)
		log.Info().Err(err).Int("status", status).Int64("amount", req.Amount).Msg("bid not placed")
		writeJSON(w, status, ErrorResponse{Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, bid)
}

// RegisterRoutes registers the viewer REST routes with an HTTP mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/snapshot", h.HandleGetSnapshot)
	mux.HandleFunc("/api/bid/options", h.HandleGetBidOptions)
	mux.HandleFunc("/api/bid", h.HandlePlaceBid)
}

func statusForBidError(err error) int {
	var apiErr *auction_api_client.APIError
	switch {
	case errors.Is(err, bidding.ErrNoTeam):
		return http.StatusForbidden
	case errors.Is(err, bidding.ErrInsufficientBudget):
		return http.StatusUnprocessableEntity
	case errors.Is(err, bidding.ErrSubmissionInFlight), errors.Is(err, bidding.ErrNoCurrentPlayer):
		return http.StatusConflict
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= http.StatusBadRequest {
			return apiErr.StatusCode
		}
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode viewer response")
	}
}
