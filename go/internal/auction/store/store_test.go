package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevahub/templeauction/go/internal/models"
)

func testPlayer(id string, base int64) *models.Player {
	return &models.Player{ID: id, Name: "Player " + id, BasePrice: base, Status: models.PlayerStatusInAuction}
}

func testTeam(id string) *models.Team {
	return &models.Team{ID: id, Name: "Team " + id, ShortName: id, Budget: 100000, RemainingBudget: 80000}
}

func TestReplaceState_DefaultsCurrentBidToBasePrice(t *testing.T) {
	s := New()
	s.ReplaceState(models.AuctionState{
		Status:        models.AuctionStatusLive,
		CurrentPlayer: testPlayer("p1", 2000),
	})

	got := s.State()
	assert.Equal(t, int64(2000), got.CurrentBid)
	assert.False(t, got.HasBidder())
}

func TestReplaceState_Idempotent(t *testing.T) {
	s := New()
	full := models.AuctionState{
		Status:        models.AuctionStatusLive,
		CurrentPlayer: testPlayer("p1", 2000),
		CurrentBid:    5000,
		CurrentBidder: testTeam("A"),
		Bids: []models.Bid{
			{ID: "b2", Amount: 5000, TeamID: "A", CreatedAt: time.Unix(20, 0)},
			{ID: "b1", Amount: 4000, TeamID: "B", CreatedAt: time.Unix(10, 0)},
		},
	}

	s.ReplaceState(full)
	first := s.State()
	s.ReplaceState(full)
	second := s.State()

	assert.Equal(t, first, second)
}

func TestReplaceState_KeepsHistoryForSamePlayerOnly(t *testing.T) {
	s := New()
	s.ReplaceState(models.AuctionState{
		Status:        models.AuctionStatusLive,
		CurrentPlayer: testPlayer("p1", 2000),
		Bids:          []models.Bid{{ID: "b1", Amount: 2000, TeamID: "A"}},
	})

	s.ReplaceState(models.AuctionState{
		Status:        models.AuctionStatusLive,
		CurrentPlayer: testPlayer("p1", 2000),
		CurrentBid:    2000,
	})
	require.Len(t, s.State().Bids, 1)

	s.ReplaceState(models.AuctionState{
		Status:        models.AuctionStatusLive,
		CurrentPlayer: testPlayer("p2", 3000),
	})
	assert.Empty(t, s.State().Bids)

	s.ReplaceState(models.AuctionState{
		Status:        models.AuctionStatusLive,
		CurrentPlayer: testPlayer("p2", 3000),
		Bids:          []models.Bid{},
	})
	assert.NotNil(t, s.State().Bids)
	assert.Empty(t, s.State().Bids)
}

func TestPatchThenReplace_ReplaceWins(t *testing.T) {
	s := New()
	s.ReplaceState(models.AuctionState{Status: models.AuctionStatusLive, CurrentPlayer: testPlayer("p1", 2000)})

	newer := int64(9000)
	s.PatchState(models.StatePatch{CurrentBid: &newer, CurrentBidder: testTeam("A")})

	// A poll result that was fetched before the patch still wins.
	older := models.AuctionState{
		Status:        models.AuctionStatusLive,
		CurrentPlayer: testPlayer("p1", 2000),
		CurrentBid:    7000,
		CurrentBidder: testTeam("B"),
	}
	s.ReplaceState(older)

	got := s.State()
	assert.Equal(t, int64(7000), got.CurrentBid)
	assert.Equal(t, "B", got.LeaderID())
}

func TestPatchState_NewPlayerResetsBid(t *testing.T) {
	s := New()
	s.ReplaceState(models.AuctionState{
		Status:        models.AuctionStatusLive,
		CurrentPlayer: testPlayer("p1", 2000),
		CurrentBid:    8000,
		CurrentBidder: testTeam("A"),
	})

	s.PatchState(models.StatePatch{CurrentPlayer: testPlayer("p2", 3000), ClearBidder: true})

	got := s.State()
	assert.Equal(t, "p2", got.CurrentPlayer.ID)
	assert.Equal(t, int64(3000), got.CurrentBid)
	assert.Nil(t, got.CurrentBidder)
}

func TestPatchState_OnlyTouchesSetFields(t *testing.T) {
	s := New()
	s.ReplaceState(models.AuctionState{
		Status:        models.AuctionStatusLive,
		CurrentPlayer: testPlayer("p1", 2000),
		CurrentBid:    4000,
		CurrentBidder: testTeam("A"),
	})

	paused := models.AuctionStatusPaused
	s.PatchState(models.StatePatch{Status: &paused})

	got := s.State()
	assert.Equal(t, models.AuctionStatusPaused, got.Status)
	assert.Equal(t, int64(4000), got.CurrentBid)
	assert.Equal(t, "A", got.LeaderID())
}

func TestPrependBid_NewestFirst(t *testing.T) {
	s := New()
	s.PrependBid(models.Bid{ID: "b1", Amount: 2000})
	s.PrependBid(models.Bid{ID: "b2", Amount: 3000})

	bids := s.State().Bids
	require.Len(t, bids, 2)
	assert.Equal(t, "b2", bids[0].ID)
	assert.Equal(t, "b1", bids[1].ID)
}

func TestSnapshot_ReturnsCopies(t *testing.T) {
	s := New()
	s.SetTeam(testTeam("A"))
	s.SetQueue([]models.Player{*testPlayer("p3", 1000)})

	snap := s.Snapshot()
	snap.Team.RemainingBudget = 0
	snap.Queue[0].Name = "changed"

	assert.Equal(t, int64(80000), s.Team().RemainingBudget)
	assert.Equal(t, "Player p3", s.Snapshot().Queue[0].Name)
}

func TestOverlay_SeparateFromState(t *testing.T) {
	s := New()
	s.ReplaceState(models.AuctionState{Status: models.AuctionStatusLive, CurrentPlayer: testPlayer("p1", 2000)})
	s.SetFrozen(true)

	s.ReplaceState(models.AuctionState{Status: models.AuctionStatusLive, CurrentPlayer: testPlayer("p1", 2000)})
	assert.True(t, s.Overlay().BidFrozen)

	s.SetFrozen(false)
	assert.False(t, s.Snapshot().Overlay.BidFrozen)
}

func TestClear(t *testing.T) {
	s := New()
	s.ReplaceState(models.AuctionState{Status: models.AuctionStatusLive, CurrentPlayer: testPlayer("p1", 2000)})
	s.SetTeam(testTeam("A"))
	s.SetSquad([]models.Player{*testPlayer("p0", 1000)})
	s.SetFrozen(true)

	s.Clear()

	snap := s.Snapshot()
	assert.Equal(t, models.AuctionStatusIdle, snap.State.Status)
	assert.Nil(t, snap.State.CurrentPlayer)
	assert.Nil(t, snap.Team)
	assert.Empty(t, snap.Squad)
	assert.False(t, snap.Overlay.BidFrozen)
}

func TestSubscribe(t *testing.T) {
	s := New()
	ch, cancel := s.Subscribe()

	s.SetQueue(nil)
	s.SetQueue(nil)

	select {
	case <-ch:
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-ch:
		t.Fatal("signals should coalesce")
	default:
	}

	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	cancel()
}

func TestClose_ReleasesSubscribers(t *testing.T) {
	s := New()
	ch, cancel := s.Subscribe()
	s.Close()

	_, ok := <-ch
	assert.False(t, ok)
	cancel()

	late, _ := s.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
