package web

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/salesetl/internal/core"
)

// EntityResponse describes one configured entity.
type EntityResponse struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Table    string `json:"table"`
	Snapshot string `json:"snapshot"`
	Order    int    `json:"order"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status        string    `json:"status"`
	Running       bool      `json:"running"`
	Available     int       `json:"available_runs"`
	NextScheduled time.Time `json:"next_scheduled,omitzero"`
}

// StartRunResponse is the body of a 202 from POST /api/runs.
type StartRunResponse struct {
	ID        string `json:"id"`
	StatusURL string `json:"status_url"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Running:       s.service.Running(),
		Available:     s.service.Available(),
		NextScheduled: s.service.NextScheduled(),
	})
}

func (s *Server) entities() []core.EntityInfo {
	var infos []core.EntityInfo
	for _, key := range s.service.Entities() {
		if def, ok := core.Get(key); ok {
			infos = append(infos, def.Info)
		}
	}
	return infos
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	infos := s.entities()
	out := make([]EntityResponse, len(infos))
	for i, info := range infos {
		out[i] = EntityResponse{
			Key:      info.Key,
			Label:    info.Label,
			Table:    info.Table,
			Snapshot: info.Snapshot,
			Order:    info.Order,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Runs())
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	report, ok := s.service.Get(chi.URLParam(r, "runID"))
	if !ok {
		s.respondError(w, r, errRunNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleStartRun starts a run of the entities named in ?entity=, which may
// be repeated or comma-separated. No entity parameter runs everything.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	only := parseEntities(r.URL.Query()["entity"])

	id, err := s.service.Start(r.Context(), only...)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Location", "/api/runs/"+id)
	writeJSON(w, http.StatusAccepted, StartRunResponse{ID: id, StatusURL: "/api/runs/" + id})
}

func parseEntities(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := dashboardData{
		Entities: s.entities(),
		Runs:     s.service.Runs(),
		Running:  s.service.Running(),
		Next:     s.service.NextScheduled(),
	}

	var buf bytes.Buffer
	if err := dashboardPage(data).Render(r.Context(), &buf); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}
