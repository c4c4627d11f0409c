package auction_api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sevahub/templeauction/go/internal/models"
)

type PlayersResponse struct {
	Players []models.Player `json:"players"`
}

type PlaceBidRequest struct {
	Amount int64 `json:"amount"`
}

type PlaceBidResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Bid     *models.Bid `json:"bid,omitempty"`
}

// GetAuctionState fetches the authoritative auction snapshot
func (c *AuctionApiClient) GetAuctionState(ctx context.Context) (*models.AuctionState, error) {
	body, err := c.Get(ctx, AuctionStateEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction state: %w", toAPIError(err))
	}

	var state models.AuctionState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal auction state: %w", err)
	}
	return &state, nil
}

// GetPlayerQueue fetches the next players due under the hammer
func (c *AuctionApiClient) GetPlayerQueue(ctx context.Context, limit int) ([]models.Player, error) {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	body, err := c.Get(ctx, PlayerQueueEndpoint+"?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to get player queue: %w", toAPIError(err))
	}

	var response PlayersResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player queue: %w", err)
	}
	return response.Players, nil
}

// PlaceBid submits a bid for the viewer's team. Rejections come back as *APIError.
func (c *AuctionApiClient) PlaceBid(ctx context.Context, amount int64) (*models.Bid, error) {
	payload, err := json.Marshal(PlaceBidRequest{Amount: amount})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bid: %w", err)
	}

	body, err := c.Post(ctx, PlaceBidEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, toAPIError(err)
	}

	var response PlaceBidResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bid response: %w", err)
	}
	if !response.Success {
		msg := response.Message
		if msg == "" {
			msg = "bid was not accepted"
		}
		return nil, &APIError{StatusCode: 200, Message: msg}
	}
	return response.Bid, nil
}
