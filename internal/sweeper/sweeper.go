package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/bidtide/auction-backend/internal/mail"
	"github.com/bidtide/auction-backend/internal/repository"
	"github.com/bidtide/auction-backend/internal/service"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Sweeper periodically scans for listed auctions past their deadline and
// drives each through settlement. It is safe to overlap with itself and
// with request handling: the settlement write is status-guarded, so a
// given auction settles at most once.
type Sweeper struct {
	auctions repository.AuctionRepository
	settler  service.SettlementService
	mailer   mail.Mailer
	interval time.Duration
}

func New(auctions repository.AuctionRepository, settler service.SettlementService, mailer mail.Mailer, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Sweeper{auctions: auctions, settler: settler, mailer: mailer, interval: interval}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	log.WithField("interval", s.interval.String()).Info("settlement sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info("settlement sweeper stopped")
			return
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs a single pass. One failing auction never aborts the rest.
func (s *Sweeper) Sweep(ctx context.Context) {
	logger := log.WithField("run", uuid.New().String())
	now := time.Now().UTC()

	expired, err := s.auctions.ListExpiredListed(ctx, now)
	if err != nil {
		logger.WithField("error", err).Error("expired auction scan failed")
		return
	}
	for i := range expired {
		s.settleOne(ctx, logger, expired[i].ID)
	}

	// Pending auctions past their provisional deadline are reported, never
	// auto-rejected: the deadline is not meaningful until the fee clears.
	stale, err := s.auctions.ListStalePending(ctx, now)
	if err != nil {
		logger.WithField("error", err).Error("stale pending scan failed")
		return
	}
	for i := range stale {
		a := &stale[i]
		logger.WithFields(log.Fields{"auction": a.ID, "seller": a.SellerUID}).Warn("pending auction expired before fee confirmation")
		if s.mailer != nil {
			subject := fmt.Sprintf("Auction %q expired before listing", a.Title)
			body := "The bidding window lapsed while the listing fee was unpaid. Confirm the fee to relist."
			if err := s.mailer.Send(ctx, a.SellerUID, subject, body); err != nil {
				logger.WithFields(log.Fields{"auction": a.ID, "error": err}).Warn("stale pending mail failed")
			}
		}
	}
}

func (s *Sweeper) settleOne(ctx context.Context, logger *log.Entry, auctionID uint64) {
	defer func() {
		if p := recover(); p != nil {
			logger.WithFields(log.Fields{"auction": auctionID, "panic": p}).Error("settlement panicked")
		}
	}()
	res, err := s.settler.Settle(ctx, auctionID)
	if err != nil {
		logger.WithFields(log.Fields{"auction": auctionID, "error": err}).Error("settlement failed")
		return
	}
	switch {
	case !res.Settled:
		logger.WithField("auction", auctionID).Debug("already settled")
	case res.HasWinner:
		logger.WithFields(log.Fields{
			"auction":    auctionID,
			"winner":     res.WinnerUID,
			"winningBid": res.WinningBid.StringFixed(2),
		}).Info("auction settled")
	default:
		logger.WithField("auction", auctionID).Info("auction closed without bids")
	}
}
