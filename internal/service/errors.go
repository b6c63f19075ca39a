package service

import "errors"

// Business-rule sentinels. Callers match with errors.Is; messages carry the
// context (e.g. the computed minimum bid) via wrapping.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrNotBiddable  = errors.New("auction is not open for bidding")
	ErrSelfBid      = errors.New("sellers cannot bid on their own auction")
	ErrBidTooLow    = errors.New("bid amount too low")
	ErrNotPending   = errors.New("auction is not awaiting fee confirmation")
	ErrNotSettled   = errors.New("auction is not settled")
	ErrAccessDenied = errors.New("access denied")
	ErrForbidden    = errors.New("forbidden")
)
