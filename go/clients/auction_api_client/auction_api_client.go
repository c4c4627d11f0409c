package auction_api_client

import (
	"github.com/sevahub/templeauction/go/clients"
)

type AuctionApiClient struct {
	*clients.BaseClient
}

func NewAuctionApiClient(baseURL, token string) *AuctionApiClient {
	client := &AuctionApiClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader("Accept", "application/json")
	client.SetBearerToken(token)

	return client
}
