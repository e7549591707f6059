package strapitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/common"
)

// Request is a recorded inbound request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type failure struct {
	method    string
	pattern   string
	status    int
	remaining int // <0 means forever
}

// Server is the fake API. Its exported methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	secret     []byte
	nextID     int64
	now        func() time.Time
	users      map[int64]*user
	addresses  map[int64]*address
	adverts    map[int64]*advert
	categories map[int64]*category
	files      map[int64]*file
	resetCodes map[string]int64
	failures   []*failure
	requests   []Request
}

// New starts a fake API that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		secret:     []byte("strapitest-secret"),
		nextID:     1,
		now:        time.Now,
		users:      map[int64]*user{},
		addresses:  map[int64]*address{},
		adverts:    map[int64]*advert{},
		categories: map[int64]*category{},
		files:      map[int64]*file{},
		resetCodes: map[string]int64{},
	}
	s.Server = httptest.NewServer(s.middleware(s.routes()))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/local", s.handleLogin)
	mux.HandleFunc("POST /api/auth/local/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/forgot-password", s.handleForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", s.handleResetPassword)
	mux.HandleFunc("POST /api/auth/change-password", s.authed(s.handleChangePassword))
	mux.HandleFunc("POST /api/auth/refresh", s.authed(s.handleRefresh))
	mux.HandleFunc("POST /api/auth/logout", s.authed(s.handleLogout))

	mux.HandleFunc("GET /api/users/{id}", s.authed(s.handleGetUser))
	mux.HandleFunc("PUT /api/users/{id}", s.authed(s.handleUpdateUser))

	mux.HandleFunc("GET /api/addresses", s.authed(s.handleListAddresses))
	mux.HandleFunc("POST /api/addresses", s.authed(s.handleCreateAddress))
	mux.HandleFunc("PUT /api/addresses/{documentId}", s.authed(s.handleUpdateAddress))
	mux.HandleFunc("DELETE /api/addresses/{documentId}", s.authed(s.handleDeleteAddress))

	mux.HandleFunc("GET /api/user-adverts", s.handleListAdverts)
	mux.HandleFunc("POST /api/user-adverts", s.authed(s.handleCreateAdvert))
	mux.HandleFunc("PUT /api/user-adverts/{documentId}", s.authed(s.handleUpdateAdvert))
	mux.HandleFunc("DELETE /api/user-adverts/{documentId}", s.authed(s.handleDeleteAdvert))

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/upload", s.authed(s.handleUpload))

	return mux
}

// middleware records the request, enforces the proxy bypass header and
// applies injected failures before routing.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		status := s.injectedLocked(r.Method, r.URL.Path)
		s.mu.Unlock()

		if r.Header.Get(common.DefaultProxyBypassHeader) == "" {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusNetworkAuthenticationRequired)
			_, _ = io.WriteString(w, "<html><body>tunnel reminder</body></html>")
			return
		}
		if status != 0 {
			writeError(w, status, "InjectedError", "injected failure")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectedLocked(method, p string) int {
	for _, f := range s.failures {
		if f.remaining == 0 || (f.method != "" && f.method != method) {
			continue
		}
		if ok, _ := path.Match(f.pattern, p); !ok {
			continue
		}
		if f.remaining > 0 {
			f.remaining--
		}
		return f.status
	}
	return 0
}

// Fail makes every request matching method and the path.Match pattern
// answer with status. An empty method matches all methods.
func (s *Server) Fail(method, pattern string, status int) {
	s.FailN(method, pattern, status, -1)
}

// FailN is Fail limited to the next n matching requests.
func (s *Server) FailN(method, pattern string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, &failure{method: method, pattern: pattern, status: status, remaining: n})
}

// ClearFailures removes all injected failures.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = nil
}

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many recorded requests match method and pattern.
func (s *Server) Count(method, pattern string) int {
	n := 0
	for _, r := range s.Requests() {
		if method != "" && r.Method != method {
			continue
		}
		if ok, _ := path.Match(pattern, r.Path); ok {
			n++
		}
	}
	return n
}

// SetNextID sets the id given to the next created entity.
func (s *Server) SetNextID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = id
}

func (s *Server) allocIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

type errorBody struct {
	Status  int    `json:"status"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, name, msg string) {
	writeJSON(w, status, map[string]any{
		"data":  nil,
		"error": errorBody{Status: status, Name: name, Message: msg},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readData(r *http.Request, v any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		return err
	}
	if len(env.Data) == 0 {
		return io.ErrUnexpectedEOF
	}
	return json.Unmarshal(env.Data, v)
}
