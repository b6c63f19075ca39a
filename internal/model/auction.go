package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AuctionStatus string

const (
	AuctionStatusPending  AuctionStatus = "pending"
	AuctionStatusListed   AuctionStatus = "listed"
	AuctionStatusClosed   AuctionStatus = "closed"
	AuctionStatusEnded    AuctionStatus = "ended"
	AuctionStatusRejected AuctionStatus = "rejected"
)

// Terminal reports whether the status can never change again.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionStatusClosed || s == AuctionStatusEnded || s == AuctionStatusRejected
}

type Auction struct {
	ID            uint64           `gorm:"primaryKey;autoIncrement"`
	SellerUID     string           `gorm:"column:seller_uid;size:128;index;not null"`
	Title         string           `gorm:"size:120;not null"`
	Description   string           `gorm:"type:text;not null"`
	StartingPrice decimal.Decimal  `gorm:"column:starting_price;type:decimal(20,2);not null"`
	MinIncrement  decimal.Decimal  `gorm:"column:min_increment;type:decimal(20,2);not null"`
	Status        AuctionStatus    `gorm:"column:status;size:32;index;not null"`
	AdminFeePaid  bool             `gorm:"column:admin_fee_paid;not null"`
	EndsAt        *time.Time       `gorm:"column:ends_at;index"`
	WinnerUID     *string          `gorm:"column:winner_uid;size:128;index"`
	WinningBid    *decimal.Decimal `gorm:"column:winning_bid;type:decimal(20,2)"`
	CreatedAt     time.Time        `gorm:"autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime"`
}

func (Auction) TableName() string {
	return "auctions"
}

// Biddable reports whether bids may currently be admitted. EndsAt is only
// meaningful while listed; the deadline itself is enforced by the sweeper.
func (a *Auction) Biddable() bool {
	return a.Status == AuctionStatusListed && a.AdminFeePaid
}
