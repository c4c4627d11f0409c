package auction_api_client

const (
	// API Endpoints
	AuctionStateEndpoint = "/auction/state"
	PlayerQueueEndpoint  = "/auction/queue"
	PlaceBidEndpoint     = "/auction/bid"
	TeamEndpoint         = "/teams/%s"
	TeamSquadEndpoint    = "/teams/%s/squad"

	// Defaults
	DefaultQueueLimit = 5
)
