package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevahub/templeauction/go/clients/auction_api_client"
	"github.com/sevahub/templeauction/go/internal/auction/bidding"
	"github.com/sevahub/templeauction/go/internal/auction/events"
	"github.com/sevahub/templeauction/go/internal/models"
)

type fakeSession struct {
	mu       sync.Mutex
	snapshot models.Snapshot
	bidErr   error
	bids     []int64

	changes       chan struct{}
	notifications chan events.Notification
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		snapshot: models.Snapshot{
			State: models.AuctionState{
				Status:        models.AuctionStatusLive,
				CurrentPlayer: &models.Player{ID: "p1", Name: "Ravi", BasePrice: 2000},
				CurrentBid:    2000,
			},
			Team: &models.Team{ID: "B", RemainingBudget: 40000},
		},
		changes:       make(chan struct{}, 1),
		notifications: make(chan events.Notification, 1),
	}
}

func (f *fakeSession) Snapshot() models.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeSession) Subscribe() (<-chan struct{}, func()) {
	return f.changes, func() {}
}

func (f *fakeSession) Notifications() <-chan events.Notification { return f.notifications }
func (f *fakeSession) Connected() bool                           { return true }
func (f *fakeSession) NextBidAmount() int64                      { return 2000 }
func (f *fakeSession) BidOptions() []int64                       { return []int64{2000, 3000, 4000} }
func (f *fakeSession) CheckBid() bidding.Guard                   { return bidding.GuardNone }

func (f *fakeSession) PlaceBid(ctx context.Context, amount int64) (*models.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bidErr != nil {
		return nil, f.bidErr
	}
	if amount == 0 {
		amount = 2000
	}
	f.bids = append(f.bids, amount)
	return &models.Bid{ID: "b1", PlayerID: "p1", Amount: amount, TeamID: "B"}, nil
}

func (f *fakeSession) placed() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.bids...)
}

func (f *fakeSession) setBid(amount int64) {
	f.mu.Lock()
	f.snapshot.State.CurrentBid = amount
	f.mu.Unlock()
	f.changes <- struct{}{}
}

func newTestServer(t *testing.T, session *fakeSession) (*httptest.Server, *Hub) {
	t.Helper()
	hub := NewHub(session, DefaultHubConfig())
	server := httptest.NewServer(newRouter(session, hub))
	t.Cleanup(server.Close)
	return server, hub
}

func TestGetSnapshot(t *testing.T) {
	server, _ := newTestServer(t, newFakeSession())

	resp, err := http.Get(server.URL + "/api/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body SnapshotResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "p1", body.State.CurrentPlayer.ID)
	assert.Equal(t, int64(2000), body.NextBid)
	assert.Equal(t, []int64{2000, 3000, 4000}, body.BidOptions)
	assert.True(t, body.Connected)
}

func TestGetBidOptions(t *testing.T) {
	server, _ := newTestServer(t, newFakeSession())

	resp, err := http.Get(server.URL + "/api/bid/options")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body BidOptionsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []int64{2000, 3000, 4000}, body.Options)
}

func TestPlaceBid(t *testing.T) {
	session := newFakeSession()
	server, _ := newTestServer(t, session)

	resp, err := http.Post(server.URL+"/api/bid", "application/json", strings.NewReader(`{"amount":3000}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var bid models.Bid
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bid))
	assert.Equal(t, int64(3000), bid.Amount)
	assert.Equal(t, []int64{3000}, session.placed())
}

func TestPlaceBid_EmptyBodyBidsNextAmount(t *testing.T) {
	session := newFakeSession()
	server, _ := newTestServer(t, session)

	resp, err := http.Post(server.URL+"/api/bid", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []int64{2000}, session.placed())
}

func TestPlaceBid_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"no team", bidding.ErrNoTeam, http.StatusForbidden, "must be assigned to a team"},
		{"budget", bidding.ErrInsufficientBudget, http.StatusUnprocessableEntity, "insufficient budget"},
		{"in flight", bidding.ErrSubmissionInFlight, http.StatusConflict, bidding.ErrSubmissionInFlight.Error()},
		{
			"backend rejection",
			&auction_api_client.APIError{StatusCode: http.StatusBadRequest, Message: "Bid must be higher than current bid"},
			http.StatusBadRequest,
			"Bid must be higher than current bid",
		},
		{
			"rejected with 200",
			&auction_api_client.APIError{StatusCode: http.StatusOK, Message: "Auction is paused"},
			http.StatusUnprocessableEntity,
			"Auction is paused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newFakeSession()
			session.bidErr = tt.err
			server, _ := newTestServer(t, session)

			resp, err := http.Post(server.URL+"/api/bid", "application/json", strings.NewReader(`{}`))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestPlaceBid_RejectsGet(t *testing.T) {
	server, _ := newTestServer(t, newFakeSession())

	resp, err := http.Get(server.URL + "/api/bid")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t, newFakeSession())

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_PushesSnapshotsAndNotifications(t *testing.T) {
	session := newFakeSession()
	server, hub := newTestServer(t, session)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/snapshot"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readMessage(t, conn)
	assert.JSONEq(t, `"snapshot"`, string(first["type"]))
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	session.setBid(3000)
	update := readMessage(t, conn)
	assert.JSONEq(t, `"snapshot"`, string(update["type"]))
	var snap SnapshotResponse
	require.NoError(t, json.Unmarshal(update["data"], &snap))
	assert.Equal(t, int64(3000), snap.State.CurrentBid)

	session.notifications <- events.Notification{Kind: events.NotificationOutbid, Message: "You have been outbid"}
	note := readMessage(t, conn)
	assert.JSONEq(t, `"notification"`, string(note["type"]))
	var n events.Notification
	require.NoError(t, json.Unmarshal(note["data"], &n))
	assert.Equal(t, events.NotificationOutbid, n.Kind)

	cancel()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)
}
