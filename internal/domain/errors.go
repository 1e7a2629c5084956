package domain

import "errors"

// Error kinds for the signal pipeline. Callers branch with errors.Is;
// every kind degrades to "no result this cycle", none is fatal.
var (
	// ErrConnectivity network or timeout failure on a data source.
	ErrConnectivity = errors.New("source connectivity failure")

	// ErrRateLimited source rejected the request with a rate limit response.
	ErrRateLimited = errors.New("source rate limited")

	// ErrInsufficientData not enough history for an indicator or the signal path.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNoUsableSource every enabled source failed for the request.
	ErrNoUsableSource = errors.New("no usable data source")

	// ErrUnsupportedSymbol the venue has no mapping for the symbol.
	ErrUnsupportedSymbol = errors.New("symbol not supported by source")
)
