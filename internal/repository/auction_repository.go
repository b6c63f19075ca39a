package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bidtide/auction-backend/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

// AuctionRepository owns the auction rows and their guarded status
// transitions. Every Mark*/Close* method is a conditional UPDATE keyed on
// the expected current status and reports RowsAffected, so a transition
// that lost a race is observable as 0 without any read-then-write gap.
type AuctionRepository interface {
	Create(ctx context.Context, a *model.Auction) error
	FindByID(ctx context.Context, id uint64) (*model.Auction, error)
	List(ctx context.Context, status model.AuctionStatus, limit, offset int) ([]model.Auction, int64, error)
	ListBySeller(ctx context.Context, sellerUID string) ([]model.Auction, error)
	ListExpiredListed(ctx context.Context, now time.Time) ([]model.Auction, error)
	ListStalePending(ctx context.Context, now time.Time) ([]model.Auction, error)
	MarkListed(ctx context.Context, id uint64, endsAt time.Time) (int64, error)
	MarkRejected(ctx context.Context, id uint64) (int64, error)
	CloseWithWinner(ctx context.Context, id uint64, winnerUID string, amount decimal.Decimal) (int64, error)
	CloseNoWinner(ctx context.Context, id uint64) (int64, error)
}

type auctionRepository struct {
	db *gorm.DB
}

func NewAuctionRepository(db *gorm.DB) AuctionRepository {
	return &auctionRepository{db: db}
}

func (r *auctionRepository) Create(ctx context.Context, a *model.Auction) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *auctionRepository) FindByID(ctx context.Context, id uint64) (*model.Auction, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var a model.Auction
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *auctionRepository) List(ctx context.Context, status model.AuctionStatus, limit, offset int) ([]model.Auction, int64, error) {
	if r.db == nil {
		return nil, 0, ErrDBNotReady
	}
	q := r.db.WithContext(ctx).Model(&model.Auction{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Auction
	if err := q.Order("created_at desc").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *auctionRepository) ListBySeller(ctx context.Context, sellerUID string) ([]model.Auction, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Auction
	if err := r.db.WithContext(ctx).
		Where("seller_uid = ?", sellerUID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *auctionRepository) ListExpiredListed(ctx context.Context, now time.Time) ([]model.Auction, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Auction
	if err := r.db.WithContext(ctx).
		Where("status = ? AND ends_at IS NOT NULL AND ends_at <= ?", model.AuctionStatusListed, now).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *auctionRepository) ListStalePending(ctx context.Context, now time.Time) ([]model.Auction, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Auction
	if err := r.db.WithContext(ctx).
		Where("status = ? AND ends_at IS NOT NULL AND ends_at <= ?", model.AuctionStatusPending, now).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *auctionRepository) MarkListed(ctx context.Context, id uint64, endsAt time.Time) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Auction{}).
		Where("id = ? AND status = ?", id, model.AuctionStatusPending).
		Updates(map[string]interface{}{
			"status":         model.AuctionStatusListed,
			"admin_fee_paid": true,
			"ends_at":        endsAt,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *auctionRepository) MarkRejected(ctx context.Context, id uint64) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Auction{}).
		Where("id = ? AND status = ?", id, model.AuctionStatusPending).
		Update("status", model.AuctionStatusRejected)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *auctionRepository) CloseWithWinner(ctx context.Context, id uint64, winnerUID string, amount decimal.Decimal) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Auction{}).
		Where("id = ? AND status = ?", id, model.AuctionStatusListed).
		Updates(map[string]interface{}{
			"status":      model.AuctionStatusClosed,
			"winner_uid":  winnerUID,
			"winning_bid": amount,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *auctionRepository) CloseNoWinner(ctx context.Context, id uint64) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Auction{}).
		Where("id = ? AND status = ?", id, model.AuctionStatusListed).
		Update("status", model.AuctionStatusClosed)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
