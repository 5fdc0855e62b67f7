// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

// Package lokimock provides a mock Loki push endpoint for tests.
package lokimock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/nethergamesmc/lokilogger/app/loki"
)

const pushPath = "/loki/api/v1/push"

// Request is a push request received by the mock.
type Request struct {
	Header http.Header
	Body   loki.PushRequest
}

// Option configures the mock.
type Option func(*Server)

// WithBasicAuth returns an option requiring the basic auth credentials, other requests get 401.
func WithBasicAuth(username, password string) Option {
	return func(s *Server) {
		s.username = username
		s.password = password
		s.auth = true
	}
}

// WithStatuses returns an option responding to consecutive pushes with the provided
// status codes. Once exhausted, pushes are accepted with 204.
func WithStatuses(statuses ...int) Option {
	return func(s *Server) {
		s.statuses = append(s.statuses, statuses...)
	}
}

// Server is a mock Loki push endpoint recording all accepted and rejected requests.
type Server struct {
	srv *httptest.Server

	username string
	password string
	auth     bool

	mu       sync.Mutex
	statuses []int
	requests []Request
}

// New starts and returns a new mock server that is closed when the test completes.
func New(t *testing.T, opts ...Option) *Server {
	t.Helper()

	s := new(Server)
	for _, opt := range opts {
		opt(s)
	}

	router := mux.NewRouter()
	router.HandleFunc(pushPath, s.handlePush).Methods(http.MethodPost)

	s.srv = httptest.NewServer(router)
	t.Cleanup(s.srv.Close)

	return s
}

// URL returns the base URL of the mock, without the push path.
func (s *Server) URL() string {
	return s.srv.URL
}

// Requests returns all push requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Request(nil), s.requests...)
}

// Lines returns the lines of all received push requests in order.
func (s *Server) Lines() []string {
	var resp []string
	for _, req := range s.Requests() {
		for _, stream := range req.Body.Streams {
			for _, value := range stream.Values {
				resp = append(resp, value[1])
			}
		}
	}

	return resp
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	if s.auth {
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.username || pass != s.password {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
		return
	}

	var body loki.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{Header: r.Header.Clone(), Body: body})

	status := http.StatusNoContent
	if len(s.statuses) > 0 {
		status = s.statuses[0]
		s.statuses = s.statuses[1:]
	}
	s.mu.Unlock()

	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	http.Error(w, http.StatusText(status), status)
}
