package model

import "time"

type NotificationType string

// Each type carries a fixed set of optional references; payloads are typed
// columns, not a free-form map.
const (
	NotificationNewBid        NotificationType = "new_bid"
	NotificationOutbid        NotificationType = "outbid"
	NotificationWinner        NotificationType = "winner_announced"
	NotificationSold          NotificationType = "sold"
	NotificationLost          NotificationType = "lost"
	NotificationAuctionEnded  NotificationType = "auction_ended"
	NotificationNewMessage    NotificationType = "new_message"
	NotificationAuctionEnding NotificationType = "auction_ending"
	NotificationNewProduct    NotificationType = "new_product"
)

type Notification struct {
	ID             uint64           `gorm:"primaryKey;autoIncrement"`
	UserUID        string           `gorm:"column:user_uid;size:128;index;not null"`
	Type           NotificationType `gorm:"column:type;size:64;not null"`
	Title          string           `gorm:"column:title;size:255"`
	Body           string           `gorm:"column:body;type:text"`
	AuctionID      *uint64          `gorm:"column:auction_id;index"`
	BidID          *uint64          `gorm:"column:bid_id;index"`
	ConversationID *uint64          `gorm:"column:conversation_id;index"`
	ReadAt         *time.Time       `gorm:"column:read_at"`
	CreatedAt      time.Time        `gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
