package main

import (
	"github.com/jonboulle/clockwork"

	"github.com/sevahub/templeauction/go/clients/auction_api_client"
	"github.com/sevahub/templeauction/go/internal/auction"
	"github.com/sevahub/templeauction/go/internal/auction/realtime"
	"github.com/sevahub/templeauction/go/internal/config"
	"github.com/sevahub/templeauction/go/internal/viewer"
)

type Services struct {
	Session *auction.Session
	Viewer  *viewer.Server
}

func setupServices(cfg config.Config) *Services {
	// Wire up dependency injection chain
	// REST client → real-time channel → session → viewer bridge
	clock := clockwork.NewRealClock()

	client := auction_api_client.NewAuctionApiClient(cfg.API.BaseURL, cfg.API.Token)
	client.SetTimeout(cfg.API.Timeout)

	session := auction.NewSession(client, channelFactory(cfg, clock), auction.Options{
		ViewerTeamID: cfg.Viewer.TeamID,
		PollInterval: cfg.Sync.PollInterval,
		FreezeWindow: cfg.Sync.FreezeWindow,
		QueueLimit:   cfg.Sync.QueueLimit,
		Ladder:       cfg.Ladder.Ladder,
		BidOptions:   cfg.Ladder.Options,
		Clock:        clock,
	})

	return &Services{
		Session: session,
		Viewer:  viewer.NewServer(cfg.Viewer.Addr, session, viewer.DefaultHubConfig()),
	}
}

func channelFactory(cfg config.Config, clock clockwork.Clock) auction.ChannelFactory {
	rt := cfg.Realtime
	return func(handler realtime.Handler, hooks realtime.Hooks) realtime.Channel {
		if rt.Transport == config.TransportNATS {
			natsCfg := realtime.DefaultNATSConfig()
			natsCfg.URL = rt.NATSURL
			natsCfg.Subject = rt.Subject
			natsCfg.Stream = rt.Stream
			natsCfg.Token = cfg.API.Token
			natsCfg.ReconnectWait = rt.ReconnectWait
			return realtime.NewNATSChannel(natsCfg, handler, hooks, clock)
		}

		wsCfg := realtime.DefaultWebSocketConfig(rt.URL)
		wsCfg.Token = cfg.API.Token
		wsCfg.ReconnectWait = rt.ReconnectWait
		wsCfg.PingInterval = rt.PingInterval
		return realtime.NewWebSocketChannel(wsCfg, handler, hooks, clock)
	}
}
