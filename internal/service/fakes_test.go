package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bidtide/auction-backend/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory repository fakes. All of them are concurrency-safe so the race
// tests exercise the real locking in the services, not artifacts of the
// test doubles.

type memAuctionRepo struct {
	mu       sync.Mutex
	seq      uint64
	auctions map[uint64]model.Auction
}

func newMemAuctionRepo() *memAuctionRepo {
	return &memAuctionRepo{auctions: make(map[uint64]model.Auction)}
}

func (r *memAuctionRepo) Create(_ context.Context, a *model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	a.ID = r.seq
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	r.auctions[a.ID] = *a
	return nil
}

func (r *memAuctionRepo) FindByID(_ context.Context, id uint64) (*model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := a
	return &cp, nil
}

func (r *memAuctionRepo) List(_ context.Context, status model.AuctionStatus, limit, offset int) ([]model.Auction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []model.Auction
	for _, a := range r.auctions {
		if status == "" || a.Status == status {
			list = append(list, a)
		}
	}
	return list, int64(len(list)), nil
}

func (r *memAuctionRepo) ListBySeller(_ context.Context, sellerUID string) ([]model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []model.Auction
	for _, a := range r.auctions {
		if a.SellerUID == sellerUID {
			list = append(list, a)
		}
	}
	return list, nil
}

func (r *memAuctionRepo) ListExpiredListed(_ context.Context, now time.Time) ([]model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []model.Auction
	for _, a := range r.auctions {
		if a.Status == model.AuctionStatusListed && a.EndsAt != nil && !a.EndsAt.After(now) {
			list = append(list, a)
		}
	}
	return list, nil
}

func (r *memAuctionRepo) ListStalePending(_ context.Context, now time.Time) ([]model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []model.Auction
	for _, a := range r.auctions {
		if a.Status == model.AuctionStatusPending && a.EndsAt != nil && !a.EndsAt.After(now) {
			list = append(list, a)
		}
	}
	return list, nil
}

func (r *memAuctionRepo) MarkListed(_ context.Context, id uint64, endsAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok || a.Status != model.AuctionStatusPending {
		return 0, nil
	}
	a.Status = model.AuctionStatusListed
	a.AdminFeePaid = true
	a.EndsAt = &endsAt
	r.auctions[id] = a
	return 1, nil
}

func (r *memAuctionRepo) MarkRejected(_ context.Context, id uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok || a.Status != model.AuctionStatusPending {
		return 0, nil
	}
	a.Status = model.AuctionStatusRejected
	r.auctions[id] = a
	return 1, nil
}

func (r *memAuctionRepo) CloseWithWinner(_ context.Context, id uint64, winnerUID string, amount decimal.Decimal) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok || a.Status != model.AuctionStatusListed {
		return 0, nil
	}
	a.Status = model.AuctionStatusClosed
	a.WinnerUID = &winnerUID
	a.WinningBid = &amount
	r.auctions[id] = a
	return 1, nil
}

func (r *memAuctionRepo) CloseNoWinner(_ context.Context, id uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok || a.Status != model.AuctionStatusListed {
		return 0, nil
	}
	a.Status = model.AuctionStatusClosed
	r.auctions[id] = a
	return 1, nil
}

type memBidRepo struct {
	mu   sync.Mutex
	seq  uint64
	bids map[uint64][]model.Bid
}

func newMemBidRepo() *memBidRepo {
	return &memBidRepo{bids: make(map[uint64][]model.Bid)}
}

func (r *memBidRepo) Create(_ context.Context, b *model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	b.ID = r.seq
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	r.bids[b.AuctionID] = append(r.bids[b.AuctionID], *b)
	return nil
}

func (r *memBidRepo) ordered(auctionID uint64) []model.Bid {
	list := append([]model.Bid(nil), r.bids[auctionID]...)
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Amount.Equal(list[j].Amount) {
			return list[i].Amount.GreaterThan(list[j].Amount)
		}
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func (r *memBidRepo) HighestBid(_ context.Context, auctionID uint64) (*model.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.ordered(auctionID)
	if len(list) == 0 {
		return nil, nil
	}
	cp := list[0]
	return &cp, nil
}

func (r *memBidRepo) ListByAuction(_ context.Context, auctionID uint64) ([]model.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ordered(auctionID), nil
}

func (r *memBidRepo) FindByIdemKey(_ context.Context, key string) (*model.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, list := range r.bids {
		for _, b := range list {
			if b.IdemKey != nil && *b.IdemKey == key {
				cp := b
				return &cp, nil
			}
		}
	}
	return nil, nil
}

type memConvRepo struct {
	mu       sync.Mutex
	seq      uint64
	convs    map[uint64]model.Conversation
	messages map[uint64][]model.Message
}

func newMemConvRepo() *memConvRepo {
	return &memConvRepo{convs: make(map[uint64]model.Conversation), messages: make(map[uint64][]model.Message)}
}

func (r *memConvRepo) FindOrCreate(_ context.Context, auctionID uint64, sellerUID, winnerUID string) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cv := range r.convs {
		if cv.AuctionID == auctionID && cv.WinnerUID == winnerUID {
			cp := cv
			return &cp, nil
		}
	}
	r.seq++
	cv := model.Conversation{ID: r.seq, AuctionID: auctionID, SellerUID: sellerUID, WinnerUID: winnerUID, CreatedAt: time.Now().UTC()}
	r.convs[cv.ID] = cv
	cp := cv
	return &cp, nil
}

func (r *memConvRepo) FindByAuction(_ context.Context, auctionID uint64) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cv := range r.convs {
		if cv.AuctionID == auctionID {
			cp := cv
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memConvRepo) FindByUser(_ context.Context, uid string) ([]model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []model.Conversation
	for _, cv := range r.convs {
		if cv.SellerUID == uid || cv.WinnerUID == uid {
			list = append(list, cv)
		}
	}
	return list, nil
}

func (r *memConvRepo) FindByID(_ context.Context, id uint64) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cv, ok := r.convs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := cv
	return &cp, nil
}

func (r *memConvRepo) CreateMessage(_ context.Context, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	msg.ID = r.seq
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], *msg)
	return nil
}

func (r *memConvRepo) ListMessages(_ context.Context, convID uint64) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Message(nil), r.messages[convID]...), nil
}

type memNotifRepo struct {
	mu    sync.Mutex
	seq   uint64
	items []model.Notification
}

func newMemNotifRepo() *memNotifRepo {
	return &memNotifRepo{}
}

func (r *memNotifRepo) Create(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	n.ID = r.seq
	n.CreatedAt = time.Now().UTC()
	r.items = append(r.items, *n)
	return nil
}

func (r *memNotifRepo) ListByUser(_ context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []model.Notification
	for _, n := range r.items {
		if n.UserUID != userUID {
			continue
		}
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		list = append(list, n)
	}
	return list, nil
}

func (r *memNotifRepo) MarkAllRead(_ context.Context, userUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for i := range r.items {
		if r.items[i].UserUID == userUID && r.items[i].ReadAt == nil {
			r.items[i].ReadAt = &now
		}
	}
	return nil
}

func (r *memNotifRepo) CountUnread(_ context.Context, userUID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cnt int64
	for _, n := range r.items {
		if n.UserUID == userUID && n.ReadAt == nil {
			cnt++
		}
	}
	return cnt, nil
}

func (r *memNotifRepo) ExistsForBid(_ context.Context, userUID string, typ model.NotificationType, bidID uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.UserUID == userUID && n.Type == typ && n.BidID != nil && *n.BidID == bidID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memNotifRepo) countByType(userUID string, typ model.NotificationType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cnt := 0
	for _, n := range r.items {
		if n.UserUID == userUID && n.Type == typ {
			cnt++
		}
	}
	return cnt
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeBroadcaster) ToRoom(room, event string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, room+"/"+event)
}

func (f *fakeBroadcaster) Global(event string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "global/"+event)
}

func (f *fakeBroadcaster) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	cnt := 0
	for _, e := range f.events {
		if e == key {
			cnt++
		}
	}
	return cnt
}

type fakeMailer struct {
	mu    sync.Mutex
	sends []string
}

func (f *fakeMailer) Send(_ context.Context, to, subject, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, to+"/"+subject)
	return nil
}

// testEnv bundles the fakes and wires the services under test.
type testEnv struct {
	auctions *memAuctionRepo
	bids     *memBidRepo
	convs    *memConvRepo
	notifs   *memNotifRepo
	cast     *fakeBroadcaster
	mailer   *fakeMailer
}

func newTestEnv() *testEnv {
	return &testEnv{
		auctions: newMemAuctionRepo(),
		bids:     newMemBidRepo(),
		convs:    newMemConvRepo(),
		notifs:   newMemNotifRepo(),
		cast:     &fakeBroadcaster{},
		mailer:   &fakeMailer{},
	}
}

func (e *testEnv) notificationService(cooldown time.Duration) NotificationService {
	return NewNotificationService(e.notifs, cooldown)
}

func (e *testEnv) bidService(cooldown time.Duration) BidService {
	return NewBidService(e.auctions, e.bids, e.notificationService(cooldown), e.cast)
}

func (e *testEnv) settlementService(cooldown time.Duration) SettlementService {
	return NewSettlementService(e.auctions, e.bids, e.convs, e.notificationService(cooldown), e.cast, e.mailer)
}

func (e *testEnv) chatService() ChatService {
	return NewChatService(e.convs, e.auctions, e.notificationService(0), e.cast)
}

func (e *testEnv) auctionService(bidDuration time.Duration) AuctionService {
	return NewAuctionService(e.auctions, e.settlementService(0), e.cast, bidDuration)
}

// listedAuction seeds a biddable auction and returns it.
func (e *testEnv) listedAuction(seller, startingPrice, minIncrement string, endsIn time.Duration) *model.Auction {
	endsAt := time.Now().UTC().Add(endsIn)
	a := &model.Auction{
		SellerUID:     seller,
		Title:         "test auction",
		Description:   "test",
		StartingPrice: decimal.RequireFromString(startingPrice),
		MinIncrement:  decimal.RequireFromString(minIncrement),
		Status:        model.AuctionStatusListed,
		AdminFeePaid:  true,
		EndsAt:        &endsAt,
	}
	if err := e.auctions.Create(context.Background(), a); err != nil {
		panic(err)
	}
	return a
}

// pendingAuction seeds an auction still awaiting fee confirmation.
func (e *testEnv) pendingAuction(seller string, endsIn time.Duration) *model.Auction {
	endsAt := time.Now().UTC().Add(endsIn)
	a := &model.Auction{
		SellerUID:     seller,
		Title:         "pending auction",
		Description:   "test",
		StartingPrice: decimal.RequireFromString("100"),
		MinIncrement:  decimal.RequireFromString("10"),
		Status:        model.AuctionStatusPending,
		EndsAt:        &endsAt,
	}
	if err := e.auctions.Create(context.Background(), a); err != nil {
		panic(err)
	}
	return a
}
