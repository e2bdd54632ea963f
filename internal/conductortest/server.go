// Package conductortest provides a fake Conductor server for tests. It
// records every request and replies with canned responses per route.
package conductortest

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/pitabwire/conductor-mcp/internal/config"
)

// APIPath is the API root the fake server mounts its routes under.
const APIPath = "/api"

// Request captures one request received by the fake server.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	RawBody []byte
	// Body is the decoded JSON body, or nil when it did not parse.
	Body       any
	ReceivedAt time.Time
}

// Server is a configurable fake Conductor server.
type Server struct {
	server *httptest.Server
	mux    *http.ServeMux

	mu       sync.Mutex
	routes   map[string]*Route
	requests []*Request
}

// Route holds the queued responses for one method and path pattern.
type Route struct {
	mu        sync.Mutex
	responses []response
	current   int
}

type response struct {
	status int
	body   any
	text   string
	raw    bool
	delay  time.Duration
}

// New starts a fake server that is closed when the test ends. Unregistered
// routes answer 404 with a Conductor-style error body.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		mux:    http.NewServeMux(),
		routes: make(map[string]*Route),
	}
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"status":  http.StatusNotFound,
			"message": "No handler found for " + r.Method + " " + r.URL.Path,
		})
	})
	s.server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.server.Close)
	return s
}

// URL returns the server's base URL, without the API path.
func (s *Server) URL() string {
	return s.server.URL
}

// Endpoint returns the API root.
func (s *Server) Endpoint() string {
	return s.server.URL + APIPath
}

// Config returns backend settings that point at the fake server.
func (s *Server) Config() config.BackendConfig {
	return config.BackendConfig{
		BaseURL: s.server.URL,
		APIPath: APIPath,
		Timeout: 5 * time.Second,
	}
}

// On returns the route for method and a pattern relative to the API root,
// such as "/workflow/{workflowId}".
func (s *Server) On(method, pattern string) *Route {
	key := method + " " + APIPath + pattern

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.routes[key]; ok {
		return r
	}
	r := &Route{}
	s.routes[key] = r
	s.mux.HandleFunc(key, r.serve)
	return r
}

// Respond queues a JSON response. The last queued response repeats.
func (r *Route) Respond(status int, body any) *Route {
	return r.add(response{status: status, body: body})
}

// RespondText queues a plain-text response.
func (r *Route) RespondText(status int, text string) *Route {
	return r.add(response{status: status, text: text, raw: true})
}

// RespondAfter queues a JSON response sent after delay, or never if the
// client gives up first.
func (r *Route) RespondAfter(delay time.Duration, status int, body any) *Route {
	return r.add(response{status: status, body: body, delay: delay})
}

func (r *Route) add(resp response) *Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
	return r
}

func (r *Route) next() (response, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.responses) == 0 {
		return response{}, false
	}
	idx := r.current
	if idx >= len(r.responses) {
		idx = len(r.responses) - 1
	} else {
		r.current++
	}
	return r.responses[idx], true
}

func (r *Route) serve(w http.ResponseWriter, req *http.Request) {
	resp, ok := r.next()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}

	if resp.delay > 0 {
		select {
		case <-time.After(resp.delay):
		case <-req.Context().Done():
			return
		}
	}

	if resp.raw {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(resp.status)
		_, _ = io.WriteString(w, resp.text)
		return
	}
	writeJSON(w, resp.status, resp.body)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	rec := &Request{
		Method:     r.Method,
		Path:       r.URL.EscapedPath(),
		Query:      r.URL.Query(),
		Headers:    r.Header.Clone(),
		ReceivedAt: time.Now(),
	}
	if r.Body != nil {
		rec.RawBody, _ = io.ReadAll(r.Body)
		if len(rec.RawBody) > 0 {
			var parsed any
			if err := json.Unmarshal(rec.RawBody, &parsed); err == nil {
				rec.Body = parsed
			}
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	s.mu.Unlock()

	s.mux.ServeHTTP(w, r)
}

// Requests returns a copy of every recorded request in arrival order.
func (s *Server) Requests() []*Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns the number of requests received.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Last returns the most recent request, or nil.
func (s *Server) Last() *Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

// RefusedConfig returns backend settings for an address that refuses
// connections. The port is reserved and released so nothing listens on it.
func RefusedConfig(t testing.TB) config.BackendConfig {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("conductortest: reserve port: %v", err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatalf("conductortest: release port: %v", err)
	}
	return config.BackendConfig{
		BaseURL: "http://" + addr,
		APIPath: APIPath,
		Timeout: 5 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
