package model

import "time"

// Conversation is the private channel between an auction's seller and its
// winner, created lazily once the auction settles. The (auction, winner)
// pair is unique so repeated creation attempts converge on one row.
type Conversation struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	AuctionID uint64    `gorm:"column:auction_id;index:idx_auction_winner,unique" json:"auctionId"`
	SellerUID string    `gorm:"column:seller_uid;size:128;index" json:"sellerUid"`
	WinnerUID string    `gorm:"column:winner_uid;size:128;index:idx_auction_winner,unique" json:"winnerUid"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Participant reports whether uid may read or append to the channel.
func (c *Conversation) Participant(uid string) bool {
	return uid != "" && (uid == c.SellerUID || uid == c.WinnerUID)
}
