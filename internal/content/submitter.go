// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jeranaias/ragclient/internal/gateway"
	"github.com/jeranaias/ragclient/internal/util"
)

// Banner texts.
const (
	SuccessText = "Information added successfully! It is now part of my knowledge base."
	FailureText = "Failed to add content. Please check if the backend is running."
)

const (
	// DefaultSource labels content submitted from this client.
	DefaultSource = "cli"

	// DefaultBannerTTL is how long a banner stays visible.
	DefaultBannerTTL = 5 * time.Second

	// maxTitleWidth bounds the display width of a title.
	maxTitleWidth = 120
)

// Ingester sends content to the service.
type Ingester interface {
	Ingest(ctx context.Context, text, token string, opts gateway.IngestOptions) (*gateway.IngestResult, error)
}

// TokenSource supplies the current credential token.
type TokenSource interface {
	Token() string
}

// =============================================================================
// BANNER
// =============================================================================

// BannerKind distinguishes success from failure banners.
type BannerKind int

const (
	BannerSuccess BannerKind = iota
	BannerError
)

// Banner is a transient status line.
type Banner struct {
	Kind    BannerKind
	Text    string
	Expires time.Time
}

// Active reports whether the banner is still visible at now.
func (b Banner) Active(now time.Time) bool {
	return b.Text != "" && now.Before(b.Expires)
}

// =============================================================================
// SUBMITTER
// =============================================================================

// Outcome reports what Submit did.
type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeAdded
	OutcomeFailed
)

// Result is the outcome of one submission.
type Result struct {
	Outcome Outcome
	DocID   string
	Err     error
}

// Submitter sends content with the current token.
type Submitter struct {
	ingester Ingester
	tokens   TokenSource
	source   string
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	banner  Banner
	pending bool
}

// NewSubmitter creates a submitter. An empty source uses DefaultSource and
// a non-positive ttl uses DefaultBannerTTL.
func NewSubmitter(ing Ingester, tokens TokenSource, source string, ttl time.Duration) *Submitter {
	if source == "" {
		source = DefaultSource
	}
	if ttl <= 0 {
		ttl = DefaultBannerTTL
	}
	return &Submitter{
		ingester: ing,
		tokens:   tokens,
		source:   source,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Submit sends text as given with an optional title. Blank text is rejected
// without a banner. Any failure, including a missing token, sets the failure banner.
// Nothing is retried.
func (s *Submitter) Submit(ctx context.Context, text, title string) Result {
	if util.IsBlank(text) {
		return Result{Outcome: OutcomeRejected}
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return Result{Outcome: OutcomeRejected}
	}
	s.pending = true
	s.mu.Unlock()

	opts := gateway.IngestOptions{
		Source: s.source,
		Title:  util.TruncateWidth(util.Normalize(title), maxTitleWidth),
	}
	res, err := s.ingester.Ingest(ctx, text, s.tokens.Token(), opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false

	if err != nil {
		if errors.Is(err, gateway.ErrUnauthenticated) {
			log.Printf("CONTENT_REJECTED | reason=unauthenticated")
		} else {
			log.Printf("CONTENT_FAILED | error=%v", err)
		}
		s.banner = Banner{Kind: BannerError, Text: FailureText, Expires: s.now().Add(s.ttl)}
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	log.Printf("CONTENT_ADDED | doc_id=%s chars=%d", res.DocID, len(text))
	s.banner = Banner{Kind: BannerSuccess, Text: SuccessText, Expires: s.now().Add(s.ttl)}
	return Result{Outcome: OutcomeAdded, DocID: res.DocID}
}

// Banner returns the banner visible at now, if any.
func (s *Submitter) Banner(now time.Time) (Banner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.banner.Active(now) {
		return Banner{}, false
	}
	return s.banner, true
}

// Pending reports whether a submission is in flight.
func (s *Submitter) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
