/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package crpttest provides a stub of the document creation endpoint for tests and demos.
package crpttest

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"
)

// CreateDocumentPath is a path of the emulated document creation endpoint.
const CreateDocumentPath = "/api/v3/lk/documents/create"

// ReceivedDocument is a document received by Server.
type ReceivedDocument struct {
	RequestID  string
	UserAgent  string
	Body       []byte
	ReceivedAt time.Time
}

// CreateDocumentResponseData is a body of successful responses.
type CreateDocumentResponseData struct {
	Value string `json:"value"`
}

// Server is an http.Handler that emulates the document creation endpoint.
type Server struct {
	router chi.Router
	token  string

	mu            sync.Mutex
	documents     []ReceivedDocument
	hits          []time.Time
	failures      int
	failureStatus int
}

// NewServer creates a new Server. If token is not empty, requests without "Bearer <token>" authorization get 401.
func NewServer(token string) *Server {
	s := &Server{token: token}
	router := chi.NewRouter()
	router.Post(CreateDocumentPath, s.createDocument)
	s.router = router
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(rw, r)
}

// CreateDocumentHandler returns a handler of the document creation endpoint
// that can be registered in another router.
func (s *Server) CreateDocumentHandler() http.HandlerFunc {
	return s.createDocument
}

// FailNext makes the next n requests fail with 503.
func (s *Server) FailNext(n int) {
	s.FailNextWithStatus(n, http.StatusServiceUnavailable)
}

// FailNextWithStatus makes the next n requests fail with the given status code.
func (s *Server) FailNextWithStatus(n int, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
	s.failureStatus = status
}

// Hits returns arrival times of all authorized requests with a valid body, failed ones included.
func (s *Server) Hits() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.hits...)
}

// Documents returns documents received so far.
func (s *Server) Documents() []ReceivedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ReceivedDocument(nil), s.documents...)
}

func (s *Server) createDocument(rw http.ResponseWriter, r *http.Request) {
	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		rw.WriteHeader(http.StatusUnauthorized)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(body) {
		rw.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.hits = append(s.hits, time.Now())
	if s.failures > 0 {
		s.failures--
		status := s.failureStatus
		s.mu.Unlock()
		rw.WriteHeader(status)
		return
	}
	s.documents = append(s.documents, ReceivedDocument{
		RequestID:  r.Header.Get("X-Request-ID"),
		UserAgent:  r.Header.Get("User-Agent"),
		Body:       body,
		ReceivedAt: time.Now(),
	})
	s.mu.Unlock()

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(rw).Encode(CreateDocumentResponseData{Value: xid.New().String()})
}
