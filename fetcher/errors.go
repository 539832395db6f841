package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind is the coarse classification of a failed fetch.
type Kind string

const (
	KindInvalidInput Kind = "InvalidInput"
	KindNetwork      Kind = "Network"
	KindTimeout      Kind = "Timeout"
	KindHTTPStatus   Kind = "HttpStatus"
)

// FetchError is returned by every Fetcher method. Callers inspect it with
// errors.As.
type FetchError struct {
	Kind       Kind
	URL        string
	StatusCode int // set for KindHTTPStatus
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Kind == KindHTTPStatus:
		return fmt.Sprintf("fetcher: HTTP %d for %s", e.StatusCode, e.URL)
	case e.Err != nil:
		return fmt.Sprintf("fetcher: %s: %s: %v", e.Kind, e.URL, e.Err)
	default:
		return fmt.Sprintf("fetcher: %s: %s", e.Kind, e.URL)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

var errTooManyRedirects = errors.New("too many redirects")

// classify maps a transport error onto Timeout or Network.
func classify(rawURL string, err error) *FetchError {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &FetchError{Kind: KindTimeout, URL: rawURL, Err: err}
	}
	return &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
}
