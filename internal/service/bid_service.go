package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bidtide/auction-backend/internal/model"
	"github.com/bidtide/auction-backend/internal/realtime"
	"github.com/bidtide/auction-backend/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BidService interface {
	PlaceBid(ctx context.Context, auctionID uint64, bidderUID string, amount decimal.Decimal, idemKey string) (*model.Bid, error)
	ListBids(ctx context.Context, auctionID uint64) ([]model.Bid, error)
	HighestBid(ctx context.Context, auctionID uint64) (*model.Bid, error)
}

type bidService struct {
	auctionRepo repository.AuctionRepository
	bidRepo     repository.BidRepository
	notifier    NotificationService
	broadcast   realtime.Broadcaster
	locks       keyedMutex
}

func NewBidService(auctionRepo repository.AuctionRepository, bidRepo repository.BidRepository, notifier NotificationService, broadcast realtime.Broadcaster) BidService {
	return &bidService{
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		notifier:    notifier,
		broadcast:   broadcast,
	}
}

// PlaceBid validates and admits a bid. The highest-bid check and the ledger
// append run under a per-auction lock, so two concurrent bids can never both
// pass the minimum-increment check against the same stale ledger state.
func (s *bidService) PlaceBid(ctx context.Context, auctionID uint64, bidderUID string, amount decimal.Decimal, idemKey string) (*model.Bid, error) {
	if auctionID == 0 || bidderUID == "" {
		return nil, fmt.Errorf("%w: auction and bidder are required", ErrInvalidInput)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: bid amount must not be negative", ErrInvalidInput)
	}

	unlock := s.locks.lock(auctionID)
	defer unlock()

	// A retried placement with the same key returns the original bid and
	// performs no further side effects.
	if idemKey != "" {
		existing, err := s.bidRepo.FindByIdemKey(ctx, idemKey)
		if err != nil {
			return nil, fmt.Errorf("place bid: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	a, err := s.auctionRepo.FindByID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: auction not found", ErrNotBiddable)
		}
		return nil, fmt.Errorf("place bid: %w", err)
	}
	now := time.Now().UTC()
	if !a.Biddable() {
		return nil, fmt.Errorf("%w: auction is %s", ErrNotBiddable, a.Status)
	}
	if a.EndsAt != nil && !now.Before(*a.EndsAt) {
		return nil, fmt.Errorf("%w: bidding has ended", ErrNotBiddable)
	}
	if bidderUID == a.SellerUID {
		return nil, ErrSelfBid
	}

	prior, err := s.bidRepo.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("place bid: %w", err)
	}
	minimum := a.StartingPrice
	if len(prior) > 0 {
		minimum = prior[0].Amount.Add(a.MinIncrement)
	}
	if amount.LessThan(minimum) {
		return nil, fmt.Errorf("%w: minimum acceptable bid is %s", ErrBidTooLow, minimum.StringFixed(2))
	}

	bid := &model.Bid{
		AuctionID: auctionID,
		BidderUID: bidderUID,
		Amount:    amount,
		CreatedAt: now,
	}
	if idemKey != "" {
		bid.IdemKey = &idemKey
	}
	if err := s.bidRepo.Create(ctx, bid); err != nil {
		return nil, fmt.Errorf("place bid: %w", err)
	}

	// Side effects only after the bid is durably appended.
	s.fanOut(ctx, a, bid, prior)
	return bid, nil
}

// fanOut emits the post-admission notifications and broadcasts. Everything
// here is best-effort; failures are logged and never surfaced.
func (s *bidService) fanOut(ctx context.Context, a *model.Auction, bid *model.Bid, prior []model.Bid) {
	outbid := make(map[string]struct{})
	for i := range prior {
		p := &prior[i]
		if p.BidderUID == bid.BidderUID {
			continue
		}
		if !p.Amount.LessThan(bid.Amount) {
			continue
		}
		if _, done := outbid[p.BidderUID]; done {
			continue
		}
		outbid[p.BidderUID] = struct{}{}
		s.notifier.NotifyOutbid(ctx, p.BidderUID, a, bid)
	}
	s.notifier.NotifyNewBid(ctx, a, bid)

	payload := map[string]interface{}{
		"auctionId": a.ID,
		"bidId":     bid.ID,
		"amount":    bid.Amount.StringFixed(2),
		"bidder":    bid.BidderUID,
	}
	s.broadcast.ToRoom(realtime.AuctionRoom(a.ID), "bid:new", payload)
	s.broadcast.Global("bid:update", payload)
}

func (s *bidService) ListBids(ctx context.Context, auctionID uint64) ([]model.Bid, error) {
	if auctionID == 0 {
		return nil, fmt.Errorf("%w: auction is required", ErrInvalidInput)
	}
	return s.bidRepo.ListByAuction(ctx, auctionID)
}

func (s *bidService) HighestBid(ctx context.Context, auctionID uint64) (*model.Bid, error) {
	if auctionID == 0 {
		return nil, fmt.Errorf("%w: auction is required", ErrInvalidInput)
	}
	return s.bidRepo.HighestBid(ctx, auctionID)
}

// keyedMutex hands out one mutex per auction id so bids on different
// auctions never contend.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

func (k *keyedMutex) lock(id uint64) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[uint64]*sync.Mutex)
	}
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}
