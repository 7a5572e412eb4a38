// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragclient/internal/gateway"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type stubIngester struct {
	calls int
	text  string
	token string
	opts  gateway.IngestOptions
	err   error
}

func (s *stubIngester) Ingest(ctx context.Context, text, token string, opts gateway.IngestOptions) (*gateway.IngestResult, error) {
	s.calls++
	s.text, s.token, s.opts = text, token, opts
	if token == "" {
		return nil, gateway.ErrUnauthenticated
	}
	if s.err != nil {
		return nil, s.err
	}
	return &gateway.IngestResult{DocID: "doc-1"}, nil
}

func newSubmitter(ing Ingester, token string) *Submitter {
	s := NewSubmitter(ing, staticToken(token), "", 0)
	s.now = func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestSubmit_Added(t *testing.T) {
	ing := &stubIngester{}
	s := newSubmitter(ing, "tok")

	res := s.Submit(context.Background(), "  Go has goroutines.  ", "Go notes")
	assert.Equal(t, OutcomeAdded, res.Outcome)
	assert.Equal(t, "doc-1", res.DocID)
	assert.Equal(t, "  Go has goroutines.  ", ing.text, "text sent as given")
	assert.Equal(t, "tok", ing.token)
	assert.Equal(t, DefaultSource, ing.opts.Source)
	assert.Equal(t, "Go notes", ing.opts.Title)

	b, ok := s.Banner(s.now())
	require.True(t, ok)
	assert.Equal(t, BannerSuccess, b.Kind)
	assert.Equal(t, SuccessText, b.Text)
}

func TestSubmit_BlankRejected(t *testing.T) {
	ing := &stubIngester{}
	s := newSubmitter(ing, "tok")

	res := s.Submit(context.Background(), " \n ", "")
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, 0, ing.calls)
	_, ok := s.Banner(s.now())
	assert.False(t, ok)
}

func TestSubmit_NoTokenFails(t *testing.T) {
	s := newSubmitter(&stubIngester{}, "")

	res := s.Submit(context.Background(), "text", "")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.True(t, errors.Is(res.Err, gateway.ErrUnauthenticated))

	b, ok := s.Banner(s.now())
	require.True(t, ok)
	assert.Equal(t, BannerError, b.Kind)
	assert.Equal(t, FailureText, b.Text)
}

func TestSubmit_BackendFailure(t *testing.T) {
	ing := &stubIngester{err: gateway.ErrIngestFailed}
	s := newSubmitter(ing, "tok")

	res := s.Submit(context.Background(), "text", "")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, 1, ing.calls, "no retry")
	b, _ := s.Banner(s.now())
	assert.Equal(t, FailureText, b.Text)
}

func TestBanner_Expires(t *testing.T) {
	s := newSubmitter(&stubIngester{}, "tok")
	s.Submit(context.Background(), "text", "")

	now := s.now()
	_, ok := s.Banner(now.Add(DefaultBannerTTL - time.Millisecond))
	assert.True(t, ok)
	_, ok = s.Banner(now.Add(DefaultBannerTTL))
	assert.False(t, ok)
}
