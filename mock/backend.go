package mock

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

// ResourceService simulates the protected application backend: the
// session status probe, the menu resource tree and generic protected
// resources.
type ResourceService struct {
	// SessionActive drives the session status probe answer.
	SessionActive bool
	// Tree is the payload served by the resource tree endpoint.
	Tree interface{}
	// RejectWith, when non-zero, makes every protected endpoint answer
	// with that status.
	RejectWith int
	// RedirectToLogin makes protected endpoints answer with a redirect
	// to /login instead of a bare 401.
	RedirectToLogin bool

	mu                sync.Mutex
	treeRequests      int
	statusRequests    int
	lastAuthorization string
}

// NewResourceService creates a backend stub with a two-entry tree.
func NewResourceService() *ResourceService {
	return &ResourceService{
		SessionActive: true,
		Tree: []map[string]interface{}{
			{"id": 1, "name": "Dashboard", "title": "Dashboard", "path": "/dashboard"},
			{"id": 2, "name": "Reports", "title": "Reports", "path": "/reports",
				"children": []map[string]interface{}{
					{"id": 3, "name": "Monthly", "title": "Monthly", "path": "/reports/monthly"},
				}},
		},
	}
}

// Handler returns an http.Handler covering all backend endpoints.
func (s *ResourceService) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session/status", s.handleStatus)
	mux.HandleFunc("/api/resources/tree", s.handleTree)
	mux.HandleFunc("/api/", s.handleResource)
	return mux
}

// TreeRequests returns how many times the tree endpoint was hit.
func (s *ResourceService) TreeRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.treeRequests
}

// StatusRequests returns how many times the status probe was hit.
func (s *ResourceService) StatusRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusRequests
}

// LastAuthorization returns the Authorization header of the most recent
// protected request.
func (s *ResourceService) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuthorization
}

func (s *ResourceService) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.statusRequests++
	active := s.SessionActive
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if !active {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]bool{"active": false})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"active": true})
}

func (s *ResourceService) handleTree(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.treeRequests++
	s.lastAuthorization = r.Header.Get("Authorization")
	tree := s.Tree
	s.mu.Unlock()
	if !s.authorize(w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tree)
}

func (s *ResourceService) handleResource(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.lastAuthorization = r.Header.Get("Authorization")
	s.mu.Unlock()
	if !s.authorize(w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "This is a protected resource"})
}

// authorize enforces the configured rejection and a Bearer token check.
func (s *ResourceService) authorize(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	rejectWith := s.RejectWith
	redirect := s.RedirectToLogin
	s.mu.Unlock()
	if rejectWith != 0 {
		if redirect && (rejectWith == http.StatusFound || rejectWith == http.StatusSeeOther) {
			w.Header().Set("Location", "/login")
			w.WriteHeader(rejectWith)
			return false
		}
		http.Error(w, "Rejected", rejectWith)
		return false
	}
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || !strings.HasPrefix(parts[1], "eyJ") {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return false
	}
	return true
}
