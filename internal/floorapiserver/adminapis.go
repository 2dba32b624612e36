package floorapiserver

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"factory-floor-monitor/internal/registry"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
)

// LoginRequest carries one credential check
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserExtView represents the external view of an operator account
type UserExtView struct {
	Id       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginResponse is returned on a successful credential check. The role
// is client-side state afterwards; no session token is issued.
type LoginResponse struct {
	Success bool        `json:"success"`
	User    UserExtView `json:"user"`
}

func (e *LoginResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (s *FloorApiServer) apiAdminRouter() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", s.apiAdminLogin)

	return r
}

func (s *FloorApiServer) apiAdminLogin(w http.ResponseWriter, r *http.Request) {
	dataIn := LoginRequest{}
	err := json.NewDecoder(r.Body).Decode(&dataIn)
	if err != nil {
		log.Printf("apiAdminLogin: Failed to parse request body: %v", err)
		render.Render(w, r, s.httpErrInvalidRequest(err))
		return
	}

	if dataIn.Username == "" {
		dataIn.Username = "admin"
	}

	user, err := s.registry.Authenticate(dataIn.Username, dataIn.Password)
	if err == registry.ErrInvalidCredentials {
		render.Render(w, r, s.httpErrUnauthorized(err))
		return
	}
	if err != nil {
		log.Printf("apiAdminLogin: Failed to query DB (%v)", err)
		render.Render(w, r, s.httpErrUnexpected(err))
		return
	}

	out := &LoginResponse{
		Success: true,
		User: UserExtView{
			Id:       user.Id,
			Username: user.Username,
			Role:     user.Role,
		},
	}

	render.Render(w, r, out)
	return
}

// StatsExtView represents the aggregate PC counts
type StatsExtView struct {
	TotalPcs   int64 `json:"total_pcs"`
	OnlinePcs  int64 `json:"online_pcs"`
	OfflinePcs int64 `json:"offline_pcs"`
}

func (e *StatsExtView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (s *FloorApiServer) apiStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.registry.Stats()
	if err != nil {
		log.Printf("apiStats: Failed to query DB (%v)", err)
		render.Render(w, r, s.httpErrUnexpected(err))
		return
	}

	out := &StatsExtView{
		TotalPcs:   stats.TotalPcs,
		OnlinePcs:  stats.OnlinePcs,
		OfflinePcs: stats.OfflinePcs,
	}

	render.Render(w, r, out)
	return
}

// HealthExtView is the liveness probe response
type HealthExtView struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *HealthExtView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (s *FloorApiServer) apiHealth(w http.ResponseWriter, r *http.Request) {
	out := &HealthExtView{
		Status:    "OK",
		Timestamp: time.Now(),
	}

	render.Render(w, r, out)
	return
}

// IndexExtView lists the available endpoints
type IndexExtView struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Endpoints map[string]string `json:"availableEndpoints"`
}

func (e *IndexExtView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (s *FloorApiServer) apiIndex(w http.ResponseWriter, r *http.Request) {
	out := &IndexExtView{
		Message:   "Factory Floor Monitor API",
		Version:   "1.0.0",
		Status:    "running",
		Timestamp: time.Now(),
		Endpoints: map[string]string{
			"GET /api/pcs":            "Get all PC data",
			"GET /api/pcs/lastseen":   "Get lastSeen for all PCs",
			"GET /api/pc/:id":         "Get specific PC data",
			"GET /api/pc/:id/metrics": "Get PC historical metrics",
			"POST /api/pc/update":     "Update PC data",
			"POST /api/admin/login":   "Admin login",
			"GET /api/stats":          "Get system statistics",
			"GET /api/health":         "Health check",
		},
	}

	render.Render(w, r, out)
	return
}
