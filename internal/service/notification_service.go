package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bidtide/auction-backend/internal/model"
	"github.com/bidtide/auction-backend/internal/repository"
	log "github.com/sirupsen/logrus"
)

type NotificationService interface {
	Notify(ctx context.Context, userUID string, typ model.NotificationType, title, body string, auctionID, bidID, convID *uint64)
	NotifyOutbid(ctx context.Context, userUID string, auction *model.Auction, bid *model.Bid)
	NotifyNewBid(ctx context.Context, auction *model.Auction, bid *model.Bid)
	List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, userUID string) error
}

type notificationService struct {
	repo    repository.NotificationRepository
	limiter *outbidLimiter
}

func NewNotificationService(repo repository.NotificationRepository, outbidCooldown time.Duration) NotificationService {
	return &notificationService{
		repo:    repo,
		limiter: newOutbidLimiter(outbidCooldown),
	}
}

// Notify is best-effort; it logs failures but never reports them to the
// caller, so a broken notification channel cannot fail a committed bid or
// settlement.
func (s *notificationService) Notify(ctx context.Context, userUID string, typ model.NotificationType, title, body string, auctionID, bidID, convID *uint64) {
	if userUID == "" || typ == "" {
		return
	}
	n := &model.Notification{
		UserUID:        userUID,
		Type:           typ,
		Title:          title,
		Body:           body,
		AuctionID:      auctionID,
		BidID:          bidID,
		ConversationID: convID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		log.WithFields(log.Fields{"user": userUID, "type": typ, "error": err}).Warn("notification create failed")
	}
}

// NotifyOutbid applies the per-(auction, bidder) cooldown so a burst of
// successive bids does not storm the same user.
func (s *notificationService) NotifyOutbid(ctx context.Context, userUID string, auction *model.Auction, bid *model.Bid) {
	if !s.limiter.allow(auction.ID, userUID, time.Now()) {
		return
	}
	title := fmt.Sprintf("You were outbid on %q", auction.Title)
	body := fmt.Sprintf("The highest bid is now %s.", bid.Amount.StringFixed(2))
	s.Notify(ctx, userUID, model.NotificationOutbid, title, body, &auction.ID, &bid.ID, nil)
}

// NotifyNewBid tells the seller about a freshly admitted bid, at most once
// per bid id so a retried placement does not duplicate it.
func (s *notificationService) NotifyNewBid(ctx context.Context, auction *model.Auction, bid *model.Bid) {
	exists, err := s.repo.ExistsForBid(ctx, auction.SellerUID, model.NotificationNewBid, bid.ID)
	if err != nil {
		log.WithFields(log.Fields{"auction": auction.ID, "bid": bid.ID, "error": err}).Warn("new-bid dedup check failed")
		return
	}
	if exists {
		return
	}
	title := fmt.Sprintf("New bid on %q", auction.Title)
	body := fmt.Sprintf("A bid of %s was placed.", bid.Amount.StringFixed(2))
	s.Notify(ctx, auction.SellerUID, model.NotificationNewBid, title, body, &auction.ID, &bid.ID, nil)
}

func (s *notificationService) List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if userUID == "" {
		return nil, 0, nil
	}
	list, err := s.repo.ListByUser(ctx, userUID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, userUID)
	if err != nil {
		return list, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userUID string) error {
	if userUID == "" {
		return nil
	}
	return s.repo.MarkAllRead(ctx, userUID)
}

// outbidLimiter remembers the last outbid notification per (auction, user)
// and suppresses repeats inside the cooldown window. In-memory on purpose:
// losing it on restart only risks one extra notification.
type outbidLimiter struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     map[string]time.Time
}

func newOutbidLimiter(cooldown time.Duration) *outbidLimiter {
	return &outbidLimiter{cooldown: cooldown, last: make(map[string]time.Time)}
}

func (l *outbidLimiter) allow(auctionID uint64, userUID string, now time.Time) bool {
	if l.cooldown <= 0 {
		return true
	}
	key := fmt.Sprintf("%d:%s", auctionID, userUID)
	l.mu.Lock()
	defer l.mu.Unlock()
	if at, ok := l.last[key]; ok && now.Sub(at) < l.cooldown {
		return false
	}
	l.last[key] = now
	return true
}
