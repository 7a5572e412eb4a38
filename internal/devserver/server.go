// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/jeranaias/ragclient/internal/config"
	"github.com/jeranaias/ragclient/internal/util"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxRequestBodySize bounds request bodies.
	MaxRequestBodySize = 1 << 20

	// TopK is how many chunks a query retrieves.
	TopK = 5

	// CostPerToken is the nominal cost used for the cost estimate.
	CostPerToken = 0.000000125

	// NoAnswer is returned when nothing is indexed.
	NoAnswer = "I don't know based on the knowledge base."

	// DefaultIngestSource labels ingests that name no source.
	DefaultIngestSource = "paste"

	titleRunes   = 50
	excerptWidth = 240
)

// ============================================================================
// WIRE TYPES
// ============================================================================

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type ingestRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Title  string `json:"title"`
}

type ingestResponse struct {
	Status string `json:"status"`
	DocID  string `json:"doc_id"`
	Chunks int    `json:"chunks"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type sourceMetadata struct {
	Title      string `json:"title"`
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
	DocID      string `json:"doc_id"`
}

type querySource struct {
	Text     string         `json:"text"`
	Metadata sourceMetadata `json:"metadata"`
}

type queryMetrics struct {
	TimeSeconds  float64 `json:"time_seconds"`
	Tokens       int     `json:"tokens"`
	CostEstimate float64 `json:"cost_estimate"`
}

type queryResponse struct {
	Answer  string        `json:"answer"`
	Sources []querySource `json:"sources"`
	Metrics queryMetrics  `json:"metrics"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the development knowledge service.
type Server struct {
	cfg     config.ServerConfig
	auth    *Authenticator
	index   *Index
	limiter *IPRateLimiter
	handler http.Handler
}

// New creates a server from cfg. cfg.Password must be set.
func New(cfg config.ServerConfig) (*Server, error) {
	a, err := NewAuthenticator(cfg.Username, cfg.Password, cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	ix, err := NewIndex()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		auth:    a,
		index:   ix,
		limiter: NewIPRateLimiter(cfg.LoginRatePerMinute),
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/login", RateLimitMiddleware(s.limiter)(http.HandlerFunc(s.handleLogin))).Methods(http.MethodPost)
	r.Handle("/ingest", RequireAdmin(s.auth)(http.HandlerFunc(s.handleIngest))).Methods(http.MethodPost)
	r.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	return Chain(
		RecoveryMiddleware(),
		LoggingMiddleware(),
		c.Handler,
	)(r)
}

// Handler returns the HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Index returns the server's document index.
func (s *Server) Index() *Index {
	return s.index
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Printf("SERVER_SHUTDOWN | addr=%s", ln.Addr())
		return srv.Shutdown(shutdownCtx)
	}
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	log.Printf("SERVER_START | addr=%s", ln.Addr())
	return s.Serve(ctx, ln)
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.auth.Check(req.Username, req.Password) {
		log.Printf("LOGIN_FAILED | ip=%s", ClientIP(r))
		writeError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	token, err := s.auth.Issue(req.Username)
	if err != nil {
		log.Printf("LOGIN_ERROR | error=%v", err)
		writeError(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	log.Printf("LOGIN_OK | ip=%s", ClientIP(r))
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	text := util.Normalize(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = DefaultIngestSource
	}
	title := util.Normalize(req.Title)
	if title == "" {
		title = DefaultTitle(text)
	}

	docID, chunks, err := s.index.Add(r.Context(), text, title, source)
	if err != nil {
		log.Printf("INGEST_ERROR | error=%v", err)
		writeError(w, http.StatusInternalServerError, "Failed to index content")
		return
	}
	log.Printf("INGEST_OK | doc_id=%s chunks=%d source=%s by=%s", docID, chunks, source, Subject(r.Context()))
	writeJSON(w, http.StatusOK, ingestResponse{Status: "success", DocID: docID, Chunks: chunks})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req queryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	query := util.Normalize(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	hits, err := s.index.Search(r.Context(), query, TopK)
	if err != nil {
		log.Printf("QUERY_ERROR | error=%v", err)
		writeError(w, http.StatusInternalServerError, "Failed to search knowledge base")
		return
	}

	resp := queryResponse{Answer: ComposeAnswer(hits), Sources: []querySource{}}
	for _, h := range hits {
		resp.Sources = append(resp.Sources, querySource{
			Text: h.Text,
			Metadata: sourceMetadata{
				Title:      h.Title,
				Source:     h.Source,
				ChunkIndex: h.ChunkIndex,
				DocID:      h.DocID,
			},
		})
	}
	tokens := len(strings.Fields(query)) + len(strings.Fields(resp.Answer))
	resp.Metrics = queryMetrics{
		TimeSeconds:  time.Since(start).Seconds(),
		Tokens:       tokens,
		CostEstimate: float64(tokens) * CostPerToken,
	}
	writeJSON(w, http.StatusOK, resp)
}

// ComposeAnswer lists the excerpt of each hit followed by its [n] marker.
func ComposeAnswer(hits []Hit) string {
	if len(hits) == 0 {
		return NoAnswer
	}
	var b strings.Builder
	b.WriteString("Here is what the knowledge base says:\n")
	for i, h := range hits {
		fmt.Fprintf(&b, "\n- %s [%d]", util.TruncateWidth(util.Preview(h.Text), excerptWidth), i+1)
	}
	return b.String()
}

// DefaultTitle derives a title from the first characters of text.
func DefaultTitle(text string) string {
	runes := []rune(util.Preview(text))
	if len(runes) <= titleRunes {
		return string(runes)
	}
	return string(runes[:titleRunes]) + "..."
}

// ============================================================================
// HELPERS
// ============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("RESPONSE_ERROR | error=%v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
