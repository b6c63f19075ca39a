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
	"gorm.io/gorm"
)

// ChatService gates the private seller/winner channel behind settlement.
type ChatService interface {
	EnsureChannel(ctx context.Context, auctionID uint64, uid string) (*model.Conversation, error)
	ListChannels(ctx context.Context, uid string) ([]model.Conversation, error)
	ListMessages(ctx context.Context, convID uint64, uid string) ([]model.Message, error)
	PostMessage(ctx context.Context, convID uint64, uid, body string) (*model.Message, error)
}

type chatService struct {
	convRepo    repository.ConversationRepository
	auctionRepo repository.AuctionRepository
	notifier    NotificationService
	broadcast   realtime.Broadcaster
}

func NewChatService(convRepo repository.ConversationRepository, auctionRepo repository.AuctionRepository, notifier NotificationService, broadcast realtime.Broadcaster) ChatService {
	return &chatService{
		convRepo:    convRepo,
		auctionRepo: auctionRepo,
		notifier:    notifier,
		broadcast:   broadcast,
	}
}

// EnsureChannel returns the channel for a settled auction, creating it on
// first access. Idempotent: the (auction, winner) unique key makes repeat
// calls converge on the same row. Only the seller and the winner get in.
func (s *chatService) EnsureChannel(ctx context.Context, auctionID uint64, uid string) (*model.Conversation, error) {
	a, err := s.auctionRepo.FindByID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ensure channel: %w", err)
	}
	if a.Status != model.AuctionStatusClosed || a.WinnerUID == nil {
		return nil, fmt.Errorf("%w: auction has no winner yet", ErrNotSettled)
	}
	if uid != a.SellerUID && uid != *a.WinnerUID {
		return nil, ErrAccessDenied
	}
	return s.convRepo.FindOrCreate(ctx, a.ID, a.SellerUID, *a.WinnerUID)
}

func (s *chatService) ListChannels(ctx context.Context, uid string) ([]model.Conversation, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	return s.convRepo.FindByUser(ctx, uid)
}

func (s *chatService) ListMessages(ctx context.Context, convID uint64, uid string) ([]model.Message, error) {
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !cv.Participant(uid) {
		return nil, ErrAccessDenied
	}
	return s.convRepo.ListMessages(ctx, convID)
}

// PostMessage appends to the channel with a server-side timestamp and
// pushes the message to both participants' room.
func (s *chatService) PostMessage(ctx context.Context, convID uint64, uid, body string) (*model.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: message body is required", ErrInvalidInput)
	}
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !cv.Participant(uid) {
		return nil, ErrAccessDenied
	}
	msg := &model.Message{
		ConversationID: convID,
		SenderUID:      uid,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.convRepo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("post message: %w", err)
	}

	s.broadcast.ToRoom(realtime.ConversationRoom(convID), "chat:message", msg)
	other := cv.SellerUID
	if uid == cv.SellerUID {
		other = cv.WinnerUID
	}
	s.notifier.Notify(ctx, other, model.NotificationNewMessage,
		"New message", body, &cv.AuctionID, nil, &cv.ID)
	return msg, nil
}
