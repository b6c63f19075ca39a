package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid is append-only: rows are never updated or deleted once written.
type Bid struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement"`
	AuctionID uint64          `gorm:"column:auction_id;index;not null"`
	BidderUID string          `gorm:"column:bidder_uid;size:128;index;not null"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null"`
	IdemKey   *string         `gorm:"column:idem_key;size:64;uniqueIndex"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

func (Bid) TableName() string {
	return "bids"
}
