package handler

import (
	"errors"
	"net/http"

	"github.com/bidtide/auction-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// serviceError maps business-rule sentinels to HTTP responses. The error
// message goes out verbatim so a rejected bid carries the computed minimum.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_input", err.Error()))
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", err.Error()))
	case errors.Is(err, service.ErrNotBiddable):
		return c.JSON(http.StatusConflict, NewErrorResponse("not_biddable", err.Error()))
	case errors.Is(err, service.ErrSelfBid):
		return c.JSON(http.StatusForbidden, NewErrorResponse("self_bid_forbidden", err.Error()))
	case errors.Is(err, service.ErrBidTooLow):
		return c.JSON(http.StatusUnprocessableEntity, NewErrorResponse("bid_too_low", err.Error()))
	case errors.Is(err, service.ErrNotPending):
		return c.JSON(http.StatusConflict, NewErrorResponse("not_pending", err.Error()))
	case errors.Is(err, service.ErrNotSettled):
		return c.JSON(http.StatusConflict, NewErrorResponse("not_settled", err.Error()))
	case errors.Is(err, service.ErrAccessDenied), errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, NewErrorResponse("access_denied", err.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "internal error"))
	}
}
