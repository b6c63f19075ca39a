package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bidtide/auction-backend/internal/model"
	"github.com/bidtide/auction-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type AuctionHandler struct {
	svc service.AuctionService
}

func NewAuctionHandler(svc service.AuctionService) *AuctionHandler {
	return &AuctionHandler{svc: svc}
}

type CreateAuctionRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	StartingPrice string `json:"startingPrice"`
	MinIncrement  string `json:"minIncrement"`
}

type AuctionResponse struct {
	ID            uint64  `json:"id"`
	SellerUID     string  `json:"sellerUid"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	StartingPrice string  `json:"startingPrice"`
	MinIncrement  string  `json:"minIncrement"`
	Status        string  `json:"status"`
	AdminFeePaid  bool    `json:"adminFeePaid"`
	EndsAt        *string `json:"endsAt,omitempty"`
	WinnerUID     *string `json:"winnerUid,omitempty"`
	WinningBid    *string `json:"winningBid,omitempty"`
	CreatedAt     string  `json:"createdAt"`
}

type AuctionListResponse struct {
	Auctions []AuctionResponse `json:"auctions"`
	Total    int64             `json:"total"`
}

func toAuctionResponse(a *model.Auction) AuctionResponse {
	resp := AuctionResponse{
		ID:            a.ID,
		SellerUID:     a.SellerUID,
		Title:         a.Title,
		Description:   a.Description,
		StartingPrice: a.StartingPrice.StringFixed(2),
		MinIncrement:  a.MinIncrement.StringFixed(2),
		Status:        string(a.Status),
		AdminFeePaid:  a.AdminFeePaid,
		WinnerUID:     a.WinnerUID,
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
	if a.EndsAt != nil {
		s := a.EndsAt.Format(time.RFC3339)
		resp.EndsAt = &s
	}
	if a.WinningBid != nil {
		s := a.WinningBid.StringFixed(2)
		resp.WinningBid = &s
	}
	return resp
}

func (h *AuctionHandler) Create(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req CreateAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	startingPrice, err := decimal.NewFromString(req.StartingPrice)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_input", "invalid startingPrice"))
	}
	minIncrement, err := decimal.NewFromString(req.MinIncrement)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_input", "invalid minIncrement"))
	}
	a, err := h.svc.Create(c.Request().Context(), uid, req.Title, req.Description, startingPrice, minIncrement)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toAuctionResponse(a))
}

func (h *AuctionHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toAuctionResponse(a))
}

func (h *AuctionHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	status := model.AuctionStatus(c.QueryParam("status"))
	list, total, err := h.svc.List(c.Request().Context(), status, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch auctions"))
	}
	resp := AuctionListResponse{Auctions: make([]AuctionResponse, 0, len(list)), Total: total}
	for i := range list {
		resp.Auctions = append(resp.Auctions, toAuctionResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AuctionHandler) ListMine(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	list, err := h.svc.ListMine(c.Request().Context(), uid)
	if err != nil {
		return serviceError(c, err)
	}
	resp := AuctionListResponse{Auctions: make([]AuctionResponse, 0, len(list)), Total: int64(len(list))}
	for i := range list {
		resp.Auctions = append(resp.Auctions, toAuctionResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// ConfirmFee is called by the payment collaborator once the admin fee
// clears; only the seller may relay it.
func (h *AuctionHandler) ConfirmFee(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	if a.SellerUID != uid {
		return c.JSON(http.StatusForbidden, NewErrorResponse("access_denied", "not the seller"))
	}
	a, err = h.svc.ConfirmFee(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toAuctionResponse(a))
}

func (h *AuctionHandler) Reject(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	if err := h.svc.Reject(c.Request().Context(), id); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuctionHandler) Close(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	res, err := h.svc.Close(c.Request().Context(), id, uid)
	if err != nil {
		return serviceError(c, err)
	}
	body := map[string]interface{}{"auctionId": res.AuctionID, "settled": res.Settled}
	if res.HasWinner {
		body["winner"] = res.WinnerUID
		body["winningBid"] = res.WinningBid.StringFixed(2)
	}
	return c.JSON(http.StatusOK, body)
}
