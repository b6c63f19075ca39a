package service

import (
	"context"
	"testing"
	"time"

	"github.com/bidtide/auction-backend/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSettle_NoBids(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	a := env.listedAuction("seller", "100", "10", -time.Minute)
	settler := env.settlementService(0)
	ctx := context.Background()

	res, err := settler.Settle(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, res.Settled)
	require.False(t, res.HasWinner)

	got, err := env.auctions.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, model.AuctionStatusClosed, got.Status)
	require.Nil(t, got.WinnerUID)
	require.Nil(t, got.WinningBid)

	require.Equal(t, 1, env.notifs.countByType("seller", model.NotificationAuctionEnded))
}

func TestSettle_SelectsHighest(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	a := env.listedAuction("seller", "100", "10", -time.Minute)
	settler := env.settlementService(0)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, b := range []model.Bid{
		{AuctionID: a.ID, BidderUID: "x", Amount: decimal.RequireFromString("100"), CreatedAt: now},
		{AuctionID: a.ID, BidderUID: "y", Amount: decimal.RequireFromString("150"), CreatedAt: now.Add(time.Second)},
		{AuctionID: a.ID, BidderUID: "z", Amount: decimal.RequireFromString("130"), CreatedAt: now.Add(2 * time.Second)},
	} {
		b := b
		require.NoError(t, env.bids.Create(ctx, &b))
	}

	res, err := settler.Settle(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, res.Settled)
	require.True(t, res.HasWinner)
	require.Equal(t, "y", res.WinnerUID)
	require.True(t, res.WinningBid.Equal(decimal.RequireFromString("150")))

	got, err := env.auctions.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, model.AuctionStatusClosed, got.Status)
	require.NotNil(t, got.WinnerUID)
	require.Equal(t, "y", *got.WinnerUID)
	require.NotNil(t, got.WinningBid)
	require.True(t, got.WinningBid.Equal(decimal.RequireFromString("150")))

	// Winner and seller each notified once; the losing bidders once each.
	require.Equal(t, 1, env.notifs.countByType("y", model.NotificationWinner))
	require.Equal(t, 1, env.notifs.countByType("seller", model.NotificationSold))
	require.Equal(t, 1, env.notifs.countByType("x", model.NotificationLost))
	require.Equal(t, 1, env.notifs.countByType("z", model.NotificationLost))
	require.Equal(t, 0, env.notifs.countByType("y", model.NotificationLost))
}

func TestSettle_TieBreakEarliest(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	a := env.listedAuction("seller", "100", "10", -time.Minute)
	settler := env.settlementService(0)
	ctx := context.Background()

	now := time.Now().UTC()
	later := model.Bid{AuctionID: a.ID, BidderUID: "late", Amount: decimal.RequireFromString("200"), CreatedAt: now.Add(time.Minute)}
	earlier := model.Bid{AuctionID: a.ID, BidderUID: "early", Amount: decimal.RequireFromString("200"), CreatedAt: now}
	require.NoError(t, env.bids.Create(ctx, &later))
	require.NoError(t, env.bids.Create(ctx, &earlier))

	res, err := settler.Settle(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "early", res.WinnerUID)
}

func TestSettle_Idempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	a := env.listedAuction("seller", "100", "10", -time.Minute)
	settler := env.settlementService(0)
	ctx := context.Background()

	b := model.Bid{AuctionID: a.ID, BidderUID: "x", Amount: decimal.RequireFromString("150"), CreatedAt: time.Now().UTC()}
	require.NoError(t, env.bids.Create(ctx, &b))

	first, err := settler.Settle(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, first.Settled)

	winnerNotifs := env.notifs.countByType("x", model.NotificationWinner)
	mails := len(env.mailer.sends)

	// Simulates an overlapping sweeper run arriving after closure.
	second, err := settler.Settle(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, second.Settled)

	got, err := env.auctions.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "x", *got.WinnerUID)
	require.Equal(t, winnerNotifs, env.notifs.countByType("x", model.NotificationWinner))
	require.Equal(t, mails, len(env.mailer.sends))
}

func TestSettle_CreatesWinnerChannel(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	a := env.listedAuction("seller", "100", "10", -time.Minute)
	settler := env.settlementService(0)
	ctx := context.Background()

	b := model.Bid{AuctionID: a.ID, BidderUID: "x", Amount: decimal.RequireFromString("120"), CreatedAt: time.Now().UTC()}
	require.NoError(t, env.bids.Create(ctx, &b))

	_, err := settler.Settle(ctx, a.ID)
	require.NoError(t, err)

	cv, err := env.convs.FindByAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "seller", cv.SellerUID)
	require.Equal(t, "x", cv.WinnerUID)
}

func TestSettle_NotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	settler := env.settlementService(0)

	_, err := settler.Settle(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSettle_PendingUntouched(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	a := env.pendingAuction("seller", -time.Minute)
	settler := env.settlementService(0)
	ctx := context.Background()

	res, err := settler.Settle(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, res.Settled)

	got, err := env.auctions.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, model.AuctionStatusPending, got.Status)
}
