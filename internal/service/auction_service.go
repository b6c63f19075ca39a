package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bidtide/auction-backend/internal/model"
	"github.com/bidtide/auction-backend/internal/realtime"
	"github.com/bidtide/auction-backend/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AuctionService interface {
	Create(ctx context.Context, sellerUID, title, description string, startingPrice, minIncrement decimal.Decimal) (*model.Auction, error)
	Get(ctx context.Context, id uint64) (*model.Auction, error)
	List(ctx context.Context, status model.AuctionStatus, limit, offset int) ([]model.Auction, int64, error)
	ListMine(ctx context.Context, sellerUID string) ([]model.Auction, error)
	ConfirmFee(ctx context.Context, auctionID uint64) (*model.Auction, error)
	Reject(ctx context.Context, auctionID uint64) error
	Close(ctx context.Context, auctionID uint64, callerUID string) (*SettlementResult, error)
}

type auctionService struct {
	repo        repository.AuctionRepository
	settler     SettlementService
	broadcast   realtime.Broadcaster
	bidDuration time.Duration
}

func NewAuctionService(repo repository.AuctionRepository, settler SettlementService, broadcast realtime.Broadcaster, bidDuration time.Duration) AuctionService {
	return &auctionService{
		repo:        repo,
		settler:     settler,
		broadcast:   broadcast,
		bidDuration: bidDuration,
	}
}

// Create registers a listing in pending state, awaiting the external
// admin-fee confirmation. EndsAt gets a provisional deadline now and is
// re-assigned when the fee clears.
func (s *auctionService) Create(ctx context.Context, sellerUID, title, description string, startingPrice, minIncrement decimal.Decimal) (*model.Auction, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if sellerUID == "" {
		return nil, fmt.Errorf("%w: seller is required", ErrInvalidInput)
	}
	if title == "" || len(title) > 120 {
		return nil, fmt.Errorf("%w: invalid title", ErrInvalidInput)
	}
	if startingPrice.IsNegative() {
		return nil, fmt.Errorf("%w: starting price must not be negative", ErrInvalidInput)
	}
	if !minIncrement.IsPositive() {
		return nil, fmt.Errorf("%w: minimum increment must be positive", ErrInvalidInput)
	}

	endsAt := time.Now().UTC().Add(s.bidDuration)
	a := &model.Auction{
		SellerUID:     sellerUID,
		Title:         title,
		Description:   description,
		StartingPrice: startingPrice,
		MinIncrement:  minIncrement,
		Status:        model.AuctionStatusPending,
		EndsAt:        &endsAt,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create auction: %w", err)
	}
	return a, nil
}

func (s *auctionService) Get(ctx context.Context, id uint64) (*model.Auction, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *auctionService) List(ctx context.Context, status model.AuctionStatus, limit, offset int) ([]model.Auction, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, status, limit, offset)
}

func (s *auctionService) ListMine(ctx context.Context, sellerUID string) ([]model.Auction, error) {
	if sellerUID == "" {
		return nil, fmt.Errorf("%w: seller is required", ErrInvalidInput)
	}
	return s.repo.ListBySeller(ctx, sellerUID)
}

// ConfirmFee is the fee-confirmation collaborator's entrypoint. The
// pending→listed transition is a guarded update: a second confirmation, or
// one racing an administrative reject, affects zero rows and reports
// ErrNotPending.
func (s *auctionService) ConfirmFee(ctx context.Context, auctionID uint64) (*model.Auction, error) {
	endsAt := time.Now().UTC().Add(s.bidDuration)
	rows, err := s.repo.MarkListed(ctx, auctionID, endsAt)
	if err != nil {
		return nil, fmt.Errorf("confirm fee: %w", err)
	}
	if rows == 0 {
		a, ferr := s.repo.FindByID(ctx, auctionID)
		if ferr != nil {
			if errors.Is(ferr, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, ferr
		}
		return nil, fmt.Errorf("%w: auction is %s", ErrNotPending, a.Status)
	}
	a, err := s.repo.FindByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	s.broadcast.Global("auction:listed", map[string]interface{}{
		"auctionId":     a.ID,
		"title":         a.Title,
		"startingPrice": a.StartingPrice.StringFixed(2),
		"endsAt":        a.EndsAt,
	})
	return a, nil
}

// Reject is administrative: a pending listing that will never be listed.
func (s *auctionService) Reject(ctx context.Context, auctionID uint64) error {
	rows, err := s.repo.MarkRejected(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("reject auction: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: auction cannot be rejected", ErrNotPending)
	}
	return nil
}

// Close is the administrative listed→closed override: the auction settles
// immediately with whatever bids exist. Only the seller may trigger it.
func (s *auctionService) Close(ctx context.Context, auctionID uint64, callerUID string) (*SettlementResult, error) {
	a, err := s.Get(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if callerUID != "" && callerUID != a.SellerUID {
		return nil, ErrForbidden
	}
	return s.settler.Settle(ctx, auctionID)
}
