package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bidtide/auction-backend/internal/mail"
	"github.com/bidtide/auction-backend/internal/model"
	"github.com/bidtide/auction-backend/internal/realtime"
	"github.com/bidtide/auction-backend/internal/repository"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettlementResult reports what a Settle call did. Settled is false when
// the auction was already terminal and the call was a no-op.
type SettlementResult struct {
	AuctionID  uint64
	Settled    bool
	HasWinner  bool
	WinnerUID  string
	WinningBid decimal.Decimal
}

type SettlementService interface {
	Settle(ctx context.Context, auctionID uint64) (*SettlementResult, error)
}

type settlementService struct {
	auctionRepo repository.AuctionRepository
	bidRepo     repository.BidRepository
	convRepo    repository.ConversationRepository
	notifier    NotificationService
	broadcast   realtime.Broadcaster
	mailer      mail.Mailer
}

func NewSettlementService(
	auctionRepo repository.AuctionRepository,
	bidRepo repository.BidRepository,
	convRepo repository.ConversationRepository,
	notifier NotificationService,
	broadcast realtime.Broadcaster,
	mailer mail.Mailer,
) SettlementService {
	return &settlementService{
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		convRepo:    convRepo,
		notifier:    notifier,
		broadcast:   broadcast,
		mailer:      mailer,
	}
}

// Settle drives the listed→closed transition and elects the winner. The
// write is a guarded update keyed on status=listed, so under overlapping
// sweeper runs exactly one caller performs the transition; everyone else
// observes zero affected rows and backs off without side effects.
func (s *settlementService) Settle(ctx context.Context, auctionID uint64) (*SettlementResult, error) {
	a, err := s.auctionRepo.FindByID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("settle: %w", err)
	}
	if a.Status != model.AuctionStatusListed {
		return &SettlementResult{AuctionID: auctionID}, nil
	}

	bids, err := s.bidRepo.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}

	if len(bids) == 0 {
		rows, err := s.auctionRepo.CloseNoWinner(ctx, auctionID)
		if err != nil {
			return nil, fmt.Errorf("settle: %w", err)
		}
		if rows == 0 {
			return &SettlementResult{AuctionID: auctionID}, nil
		}
		s.notifier.Notify(ctx, a.SellerUID, model.NotificationAuctionEnded,
			fmt.Sprintf("Auction %q ended without bids", a.Title),
			"Your auction closed with no bids.", &a.ID, nil, nil)
		s.sendMail(ctx, a.SellerUID, fmt.Sprintf("Auction %q ended", a.Title), "Your auction closed without any bids.")
		s.broadcast.ToRoom(realtime.AuctionRoom(a.ID), "auction:closed", map[string]interface{}{"auctionId": a.ID})
		return &SettlementResult{AuctionID: auctionID, Settled: true}, nil
	}

	// The ledger orders by amount descending with earlier timestamps
	// breaking ties, so the head is the winner.
	winning := bids[0]
	rows, err := s.auctionRepo.CloseWithWinner(ctx, auctionID, winning.BidderUID, winning.Amount)
	if err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}
	if rows == 0 {
		return &SettlementResult{AuctionID: auctionID}, nil
	}

	if _, err := s.convRepo.FindOrCreate(ctx, a.ID, a.SellerUID, winning.BidderUID); err != nil {
		log.WithFields(log.Fields{"auction": a.ID, "error": err}).Error("winner chat create failed")
	}

	amount := winning.Amount.StringFixed(2)
	s.notifier.Notify(ctx, winning.BidderUID, model.NotificationWinner,
		fmt.Sprintf("You won %q", a.Title),
		fmt.Sprintf("Your bid of %s won the auction.", amount), &a.ID, &winning.ID, nil)
	s.notifier.Notify(ctx, a.SellerUID, model.NotificationSold,
		fmt.Sprintf("%q sold", a.Title),
		fmt.Sprintf("Your auction sold for %s.", amount), &a.ID, &winning.ID, nil)
	s.sendMail(ctx, winning.BidderUID, fmt.Sprintf("You won %q", a.Title), fmt.Sprintf("Winning bid: %s", amount))
	s.sendMail(ctx, a.SellerUID, fmt.Sprintf("%q sold", a.Title), fmt.Sprintf("Winning bid: %s", amount))

	notified := map[string]struct{}{winning.BidderUID: {}}
	for i := range bids {
		uid := bids[i].BidderUID
		if _, done := notified[uid]; done {
			continue
		}
		notified[uid] = struct{}{}
		s.notifier.Notify(ctx, uid, model.NotificationLost,
			fmt.Sprintf("Auction %q has ended", a.Title),
			fmt.Sprintf("The auction closed at %s.", amount), &a.ID, nil, nil)
	}

	payload := map[string]interface{}{
		"auctionId":  a.ID,
		"winner":     winning.BidderUID,
		"winningBid": amount,
	}
	s.broadcast.ToRoom(realtime.AuctionRoom(a.ID), "auction:closed", payload)
	s.broadcast.Global("auction:closed", payload)

	return &SettlementResult{
		AuctionID:  auctionID,
		Settled:    true,
		HasWinner:  true,
		WinnerUID:  winning.BidderUID,
		WinningBid: winning.Amount,
	}, nil
}

func (s *settlementService) sendMail(ctx context.Context, to, subject, body string) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		log.WithFields(log.Fields{"to": to, "subject": subject, "error": err}).Warn("mail send failed")
	}
}
