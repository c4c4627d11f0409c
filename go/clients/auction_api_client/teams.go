package auction_api_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/sevahub/templeauction/go/internal/models"
)

// GetTeam fetches a team with its current purse and roster counters
func (c *AuctionApiClient) GetTeam(ctx context.Context, teamID string) (*models.Team, error) {
	body, err := c.Get(ctx, fmt.Sprintf(TeamEndpoint, url.PathEscape(teamID)))
	if err != nil {
		return nil, fmt.Errorf("failed to get team %s: %w", teamID, toAPIError(err))
	}

	var team models.Team
	if err := json.Unmarshal(body, &team); err != nil {
		return nil, fmt.Errorf("failed to unmarshal team: %w, raw response: %s", err, string(body))
	}
	return &team, nil
}

// GetTeamSquad fetches the players a team has bought
func (c *AuctionApiClient) GetTeamSquad(ctx context.Context, teamID string) ([]models.Player, error) {
	body, err := c.Get(ctx, fmt.Sprintf(TeamSquadEndpoint, url.PathEscape(teamID)))
	if err != nil {
		return nil, fmt.Errorf("failed to get squad for team %s: %w", teamID, toAPIError(err))
	}

	var response PlayersResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal squad: %w", err)
	}
	return response.Players, nil
}
