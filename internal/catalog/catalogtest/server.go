// Package catalogtest provides an in-memory remote catalog store for tests.
package catalogtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

// Server is an httptest-backed remote store honouring the /api/data and /api/users contract
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	doc      []byte
	maxBody  int64
	down     bool
	failNext []int
	gets     int
	posts    int
}

// NewServer starts a server seeded with doc (nil for an empty catalog)
func NewServer(t testing.TB, doc *models.CatalogDocument) *Server {
	t.Helper()
	if doc == nil {
		doc = models.NewCatalogDocument()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Failed to marshal seed document: %v", err)
	}

	s := &Server{doc: data}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// SetMaxBody makes POST /api/data answer 413 for bodies larger than n bytes (0 disables)
func (s *Server) SetMaxBody(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxBody = n
}

// SetDown makes every request fail with 503
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// FailNext queues status codes returned by the next POST /api/data requests
func (s *Server) FailNext(codes ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = append(s.failNext, codes...)
}

// Document returns the currently stored document
func (s *Server) Document(t testing.TB) *models.CatalogDocument {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc models.CatalogDocument
	if err := json.Unmarshal(s.doc, &doc); err != nil {
		t.Fatalf("Failed to decode stored document: %v", err)
	}
	return &doc
}

// Gets returns how many times the document was fetched
func (s *Server) Gets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

// Posts returns how many document writes were attempted
func (s *Server) Posts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.down {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	switch {
	case r.URL.Path == "/api/data" && r.Method == http.MethodGet:
		s.gets++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(s.doc)
	case r.URL.Path == "/api/data" && r.Method == http.MethodPost:
		s.posts++
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(s.failNext) > 0 {
			code := s.failNext[0]
			s.failNext = s.failNext[1:]
			http.Error(w, http.StatusText(code), code)
			return
		}
		if s.maxBody > 0 && int64(len(body)) > s.maxBody {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			_, _ = w.Write([]byte(`{"error":{"code":"payload_too_large","version":1}}`))
			return
		}
		var doc models.CatalogDocument
		if err := json.Unmarshal(body, &doc); err != nil {
			http.Error(w, "invalid document", http.StatusBadRequest)
			return
		}
		s.doc = body
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Path == "/api/users" && r.Method == http.MethodPost:
		var user models.User
		if err := json.NewDecoder(r.Body).Decode(&user); err != nil || user.ID == "" {
			http.Error(w, "invalid user", http.StatusBadRequest)
			return
		}
		s.updateDoc(func(doc *models.CatalogDocument) { doc.Users[user.ID] = &user })
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(user)
	case strings.HasPrefix(r.URL.Path, "/api/users/") && r.Method == http.MethodDelete:
		id := strings.TrimPrefix(r.URL.Path, "/api/users/")
		found := false
		s.updateDoc(func(doc *models.CatalogDocument) {
			_, found = doc.Users[id]
			delete(doc.Users, id)
		})
		if !found {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) updateDoc(fn func(*models.CatalogDocument)) {
	var doc models.CatalogDocument
	if err := json.Unmarshal(s.doc, &doc); err != nil {
		return
	}
	fn(&doc)
	if data, err := json.Marshal(&doc); err == nil {
		s.doc = data
	}
}
