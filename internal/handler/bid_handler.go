package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bidtide/auction-backend/internal/model"
	"github.com/bidtide/auction-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type BidHandler struct {
	svc service.BidService
}

func NewBidHandler(svc service.BidService) *BidHandler {
	return &BidHandler{svc: svc}
}

type PlaceBidRequest struct {
	Amount string `json:"amount"`
}

type BidResponse struct {
	ID        uint64 `json:"id"`
	AuctionID uint64 `json:"auctionId"`
	BidderUID string `json:"bidderUid"`
	Amount    string `json:"amount"`
	CreatedAt string `json:"createdAt"`
}

type BidListResponse struct {
	Bids []BidResponse `json:"bids"`
}

func toBidResponse(b *model.Bid) BidResponse {
	return BidResponse{
		ID:        b.ID,
		AuctionID: b.AuctionID,
		BidderUID: b.BidderUID,
		Amount:    b.Amount.StringFixed(2),
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
	}
}

func (h *BidHandler) Place(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	auctionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_input", "invalid auction id"))
	}
	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_input", "invalid amount"))
	}

	// Optional client retry token; rejected when malformed rather than
	// silently ignored.
	idemKey := c.Request().Header.Get("Idempotency-Key")
	if idemKey != "" {
		if _, err := uuid.Parse(idemKey); err != nil {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_input", "Idempotency-Key must be a UUID"))
		}
	}

	bid, err := h.svc.PlaceBid(c.Request().Context(), auctionID, uid, amount, idemKey)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toBidResponse(bid))
}

func (h *BidHandler) List(c echo.Context) error {
	auctionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_input", "invalid auction id"))
	}
	bids, err := h.svc.ListBids(c.Request().Context(), auctionID)
	if err != nil {
		return serviceError(c, err)
	}
	resp := BidListResponse{Bids: make([]BidResponse, 0, len(bids))}
	for i := range bids {
		resp.Bids = append(resp.Bids, toBidResponse(&bids[i]))
	}
	return c.JSON(http.StatusOK, resp)
}
