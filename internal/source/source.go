package source

import (
	"errors"
	"fmt"
	"time"
)

// RawArticle is a provider payload before classification. SourceName carries
// the provider's notion of the outlet; it is normalized against the channel
// allow-list later.
type RawArticle struct {
	Title       string
	URL         string
	Snippet     string
	SourceName  string
	Language    string    // provider hint, may be empty
	Origin      string    // which client fetched it
	PublishedAt time.Time // zero when the provider gave no usable date
}

// DateRange bounds a search query. To is exclusive only in the provider's
// interpretation; callers treat it as "up to now".
type DateRange struct {
	From time.Time
	To   time.Time
}

// LastDays builds the range covering the trailing number of days.
func LastDays(now time.Time, days int) DateRange {
	return DateRange{
		From: now.UTC().AddDate(0, 0, -days),
		To:   now.UTC(),
	}
}

// Days returns the span of the range in whole days, rounded up.
func (r DateRange) Days() int {
	d := r.To.Sub(r.From)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// ErrorKind classifies a fetch failure.
type ErrorKind int

const (
	// KindTransient covers timeouts, connection faults, and 5xx responses;
	// retried internally.
	KindTransient ErrorKind = iota
	// KindRateLimited is a 429; retried after the server wait hint.
	KindRateLimited
	// KindExhausted means the retry budget ran out; recorded as a per-channel
	// failure on the run.
	KindExhausted
	// KindFatal covers authentication failures and malformed requests; never
	// retried within the cycle.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	case KindExhausted:
		return "exhausted"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// FetchError is the typed failure returned by source clients.
type FetchError struct {
	Kind       ErrorKind
	Subject    string
	Channel    string
	RetryAfter time.Duration // server wait hint, rate-limit only
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s/%s: %s", e.Subject, e.Channel, e.Kind)
	}
	return fmt.Sprintf("fetch %s/%s: %s: %v", e.Subject, e.Channel, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf extracts the error kind, or (0, false) for non-fetch errors.
func KindOf(err error) (ErrorKind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// IsExhausted reports whether the error is a retry-budget exhaustion.
func IsExhausted(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindExhausted
}
