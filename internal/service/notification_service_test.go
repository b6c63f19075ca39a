package service

import (
	"context"
	"testing"
	"time"

	"github.com/bidtide/auction-backend/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestOutbidLimiter(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	l := newOutbidLimiter(5 * time.Minute)

	require.True(t, l.allow(1, "x", base))
	require.False(t, l.allow(1, "x", base.Add(time.Minute)))
	require.False(t, l.allow(1, "x", base.Add(4*time.Minute)))
	require.True(t, l.allow(1, "x", base.Add(5*time.Minute)))

	// Distinct auctions and distinct users track separately.
	require.True(t, l.allow(2, "x", base))
	require.True(t, l.allow(1, "y", base))
}

func TestOutbidLimiter_Disabled(t *testing.T) {
	t.Parallel()

	l := newOutbidLimiter(0)
	now := time.Now()
	require.True(t, l.allow(1, "x", now))
	require.True(t, l.allow(1, "x", now))
}

func TestNotifyOutbid_Cooldown(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	svc := env.notificationService(5 * time.Minute)
	a := env.listedAuction("seller", "100", "10", time.Hour)
	ctx := context.Background()

	bid := &model.Bid{ID: 1, AuctionID: a.ID, BidderUID: "y", Amount: decimal.RequireFromString("150")}
	svc.NotifyOutbid(ctx, "x", a, bid)
	svc.NotifyOutbid(ctx, "x", a, bid)
	require.Equal(t, 1, env.notifs.countByType("x", model.NotificationOutbid))

	// A different user on the same auction is not throttled.
	svc.NotifyOutbid(ctx, "z", a, bid)
	require.Equal(t, 1, env.notifs.countByType("z", model.NotificationOutbid))
}

func TestNotifyNewBid_DedupPerBid(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	svc := env.notificationService(0)
	a := env.listedAuction("seller", "100", "10", time.Hour)
	ctx := context.Background()

	first := &model.Bid{ID: 1, AuctionID: a.ID, BidderUID: "x", Amount: decimal.RequireFromString("100")}
	svc.NotifyNewBid(ctx, a, first)
	svc.NotifyNewBid(ctx, a, first)
	require.Equal(t, 1, env.notifs.countByType("seller", model.NotificationNewBid))

	second := &model.Bid{ID: 2, AuctionID: a.ID, BidderUID: "y", Amount: decimal.RequireFromString("110")}
	svc.NotifyNewBid(ctx, a, second)
	require.Equal(t, 2, env.notifs.countByType("seller", model.NotificationNewBid))
}

func TestNotify_BestEffort(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	svc := env.notificationService(0)
	ctx := context.Background()

	// Missing user or type is silently dropped rather than stored.
	svc.Notify(ctx, "", model.NotificationSold, "t", "b", nil, nil, nil)
	svc.Notify(ctx, "x", "", "t", "b", nil, nil, nil)
	list, cnt, err := svc.List(ctx, "x", false, 50)
	require.NoError(t, err)
	require.Empty(t, list)
	require.Zero(t, cnt)
}

func TestMarkAllRead(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	svc := env.notificationService(0)
	ctx := context.Background()

	svc.Notify(ctx, "x", model.NotificationSold, "Sold", "your auction sold", nil, nil, nil)
	svc.Notify(ctx, "x", model.NotificationLost, "Lost", "you were outbid at close", nil, nil, nil)
	svc.Notify(ctx, "y", model.NotificationSold, "Sold", "unrelated", nil, nil, nil)

	_, cnt, err := svc.List(ctx, "x", true, 50)
	require.NoError(t, err)
	require.EqualValues(t, 2, cnt)

	require.NoError(t, svc.MarkAllRead(ctx, "x"))

	unread, cnt, err := svc.List(ctx, "x", true, 50)
	require.NoError(t, err)
	require.Empty(t, unread)
	require.Zero(t, cnt)

	// Other users' unread state is untouched.
	_, cnt, err = svc.List(ctx, "y", true, 50)
	require.NoError(t, err)
	require.EqualValues(t, 1, cnt)
}
