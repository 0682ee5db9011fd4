package domain

import "context"

// NotificationKind distinguishes user-visible notification styles.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
	NotificationInfo    NotificationKind = "info"
)

// Notifier receives user-visible notifications from the session store.
// Calls are fire-and-forget: the store never depends on a return value.
type Notifier interface {
	RaiseNotification(message string, kind NotificationKind)
	RaiseError(message string)
}

// LoadingIndicator brackets long-running session operations.
type LoadingIndicator interface {
	StartLoading()
	StopLoading()
}

// StockQuoteProvider supplies normalized stock quotes.
type StockQuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
	Search(ctx context.Context, text string) ([]SearchResult, error)
}

// CryptoQuoteProvider supplies normalized crypto quotes.
type CryptoQuoteProvider interface {
	GetQuote(ctx context.Context, coinCode string) (*Quote, error)
	Search(ctx context.Context, text string) ([]SearchResult, error)
}

// RateProvider supplies currency exchange rates for the explicit
// presentation-time conversion step.
type RateProvider interface {
	GetRate(ctx context.Context, fromCurrency, toCurrency string) (float64, error)
}
