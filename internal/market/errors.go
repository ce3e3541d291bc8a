package market

import "fmt"

// MarketError classifies brokerage data failures
type MarketError struct {
	Type    string // "auth", "network", "provider"
	Op      string // which fetch failed, e.g. "index KOSPI"
	Message string
	Cause   error
}

func (e *MarketError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error in %s: %s (%v)", e.Type, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error in %s: %s", e.Type, e.Op, e.Message)
}

func (e *MarketError) Unwrap() error { return e.Cause }

func NewAuthError(message string, cause error) *MarketError {
	return &MarketError{Type: "auth", Op: "token", Message: message, Cause: cause}
}

func NewNetworkError(op, message string, cause error) *MarketError {
	return &MarketError{Type: "network", Op: op, Message: message, Cause: cause}
}

func NewProviderError(op, message string) *MarketError {
	return &MarketError{Type: "provider", Op: op, Message: message}
}
