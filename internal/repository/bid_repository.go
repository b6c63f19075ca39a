package repository

import (
	"context"
	"errors"

	"github.com/bidtide/auction-backend/internal/model"
	"gorm.io/gorm"
)

// BidRepository is the append-only bid ledger. Rows are never updated or
// deleted; ordering is amount first, earlier timestamp breaking ties.
type BidRepository interface {
	Create(ctx context.Context, b *model.Bid) error
	HighestBid(ctx context.Context, auctionID uint64) (*model.Bid, error)
	ListByAuction(ctx context.Context, auctionID uint64) ([]model.Bid, error)
	FindByIdemKey(ctx context.Context, key string) (*model.Bid, error)
}

type bidRepository struct {
	db *gorm.DB
}

func NewBidRepository(db *gorm.DB) BidRepository {
	return &bidRepository{db: db}
}

func (r *bidRepository) Create(ctx context.Context, b *model.Bid) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(b).Error
}

// HighestBid returns nil without error when the auction has no bids yet.
func (r *bidRepository) HighestBid(ctx context.Context, auctionID uint64) (*model.Bid, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var b model.Bid
	if err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("amount DESC, created_at ASC, id ASC").
		First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *bidRepository) ListByAuction(ctx context.Context, auctionID uint64) ([]model.Bid, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Bid
	if err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("amount DESC, created_at ASC, id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *bidRepository) FindByIdemKey(ctx context.Context, key string) (*model.Bid, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var b model.Bid
	if err := r.db.WithContext(ctx).
		Where("idem_key = ?", key).
		First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}
