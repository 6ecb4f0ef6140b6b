package exchange

import (
	"errors"
	"fmt"

	"github.com/yourusername/cross-book/internal/models"
)

// APIError is a business-level rejection from an exchange API. It is
// distinguished from transport errors so callers can decide whether a
// failed call is retryable.
type APIError struct {
	Exchange  models.ExchangeID
	Code      string
	Message   string
	Transient bool
	Cause     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s (code: %s)", e.Exchange, e.Message, e.Code)
}

func (e *APIError) Unwrap() error { return e.Cause }

// AuthenticationError signals an expired or invalid session. The order
// manager re-runs Login when it sees one.
type AuthenticationError struct {
	Exchange models.ExchangeID
	Message  string
	Cause    error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s authentication error: %s", e.Exchange, e.Message)
}

func (e *AuthenticationError) Unwrap() error { return e.Cause }

// InsufficientFundsError signals the account cannot cover the stake.
type InsufficientFundsError struct {
	Exchange models.ExchangeID
	Message  string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s insufficient funds: %s", e.Exchange, e.Message)
}

// MarketSuspendedError signals order actions were rejected because the
// market is suspended or closed.
type MarketSuspendedError struct {
	Exchange models.ExchangeID
	MarketID int64
	Message  string
}

func (e *MarketSuspendedError) Error() string {
	return fmt.Sprintf("%s market %d suspended: %s", e.Exchange, e.MarketID, e.Message)
}

// Transient reports whether err is worth retrying on a later tick: transport
// failures and errors the exchange itself flags as transient.
func Transient(err error) bool {
	var api *APIError
	if errors.As(err, &api) {
		return api.Transient
	}
	var auth *AuthenticationError
	if errors.As(err, &auth) {
		return false
	}
	var funds *InsufficientFundsError
	if errors.As(err, &funds) {
		return false
	}
	var susp *MarketSuspendedError
	if errors.As(err, &susp) {
		return false
	}
	// Anything not classified is a transport-level failure.
	return true
}
