package floorapiserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"factory-floor-monitor/internal/models"
	"factory-floor-monitor/internal/registry"
	"factory-floor-monitor/internal/status"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
)

// PCExtView represents the external view of a PC for API responses
type PCExtView struct {
	Id             string    `json:"id"`
	Name           string    `json:"name"`
	IpAddress      string    `json:"ipAddress"`
	Status         string    `json:"status"`
	Cpu            string    `json:"cpu"`
	Ram            string    `json:"ram"`
	Disk           string    `json:"disk"`
	LastReboot     string    `json:"lastReboot"`
	ProductionLine string    `json:"productionLine"`
	X              int       `json:"x"`
	Y              int       `json:"y"`
	LastSeen       time.Time `json:"lastSeen"`
}

func (e *PCExtView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func pcExtView(pc models.PC) *PCExtView {
	return &PCExtView{
		Id:             pc.Id,
		Name:           pc.Name,
		IpAddress:      pc.IpAddress,
		Status:         pc.Status,
		Cpu:            pc.Cpu,
		Ram:            pc.Ram,
		Disk:           pc.Disk,
		LastReboot:     pc.LastReboot,
		ProductionLine: pc.ProductionLine,
		X:              pc.X,
		Y:              pc.Y,
		LastSeen:       pc.LastSeen,
	}
}

func (s *FloorApiServer) apiPcsRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/", s.apiPcsGetAll)
	r.Get("/lastseen", s.apiPcsLastSeen)

	return r
}

func (s *FloorApiServer) apiPcsGetAll(w http.ResponseWriter, r *http.Request) {
	pcs, err := s.registry.ListPCs()
	if err != nil {
		log.Printf("apiPcsGetAll: Failed to query DB (%v)", err)
		render.Render(w, r, s.httpErrUnexpected(fmt.Errorf("failed to get data from backend")))
		return
	}

	// staleness projection: a PC silent for longer than the timeout is
	// presented as offline; the stored status row is left alone
	tNow := time.Now()
	outs := []render.Renderer{}
	for _, pc := range pcs {
		o := pcExtView(pc)
		if status.IsStale(pc.LastSeen, tNow, s.staleTimeout()) {
			o.Status = "offline"
		}

		outs = append(outs, o)
	}

	render.RenderList(w, r, outs)
	return
}

// PCLastSeenExtView is the trimmed per-PC contact summary
type PCLastSeenExtView struct {
	Id       string    `json:"id"`
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
}

func (e *PCLastSeenExtView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (s *FloorApiServer) apiPcsLastSeen(w http.ResponseWriter, r *http.Request) {
	pcs, err := s.registry.ListPCs()
	if err != nil {
		log.Printf("apiPcsLastSeen: Failed to query DB (%v)", err)
		render.Render(w, r, s.httpErrUnexpected(fmt.Errorf("failed to get data from backend")))
		return
	}

	outs := []render.Renderer{}
	for _, pc := range pcs {
		o := &PCLastSeenExtView{
			Id:       pc.Id,
			Name:     pc.Name,
			Status:   pc.Status,
			LastSeen: pc.LastSeen,
		}

		outs = append(outs, o)
	}

	render.RenderList(w, r, outs)
	return
}

func (s *FloorApiServer) apiPcIdCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "pcid")
		if key == "" {
			err := fmt.Errorf("Missing pcid param")
			render.Render(w, r, s.httpErrInvalidRequest(err))
			return
		}

		ctx := context.WithValue(r.Context(), "pcid", key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *FloorApiServer) apiPcRouter() chi.Router {
	r := chi.NewRouter()
	r.Post("/update", s.apiPcUpdate)
	r.Route("/{pcid}", func(r chi.Router) {
		r.Use(s.apiPcIdCtx)
		r.Get("/", s.apiPcGet)
		r.Get("/metrics", s.apiPcMetrics)
	})

	return r
}

func (s *FloorApiServer) apiPcGet(w http.ResponseWriter, r *http.Request) {
	pcId := getCtxValueString(r.Context(), "pcid")

	pc, err := s.registry.GetPC(pcId)
	if err == registry.ErrNotFound {
		render.Render(w, r, s.httpErrNotFound(err))
		return
	}
	if err != nil {
		log.Printf("apiPcGet: Failed to query DB (%v)", err)
		render.Render(w, r, s.httpErrUnexpected(fmt.Errorf("failed to get data from backend")))
		return
	}

	render.Render(w, r, pcExtView(*pc))
	return
}

// UpdateRequest is the status report pushed by the per-PC agents
type UpdateRequest struct {
	PcId string            `json:"pcId"`
	Data registry.PCUpdate `json:"data"`
}

// SuccessResponse acknowledges a processed status report
type SuccessResponse struct {
	Success bool `json:"success"`
}

func (e *SuccessResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (s *FloorApiServer) apiPcUpdate(w http.ResponseWriter, r *http.Request) {
	dataIn := UpdateRequest{}
	err := json.NewDecoder(r.Body).Decode(&dataIn)
	if err != nil {
		log.Printf("apiPcUpdate: Failed to parse request body: %v", err)
		render.Render(w, r, s.httpErrInvalidRequest(err))
		return
	}

	if dataIn.PcId == "" {
		render.Render(w, r, s.httpErrInvalidRequest(fmt.Errorf("missing pcId")))
		return
	}

	err = s.registry.UpdatePC(dataIn.PcId, dataIn.Data)
	if err == registry.ErrNotFound {
		log.Printf("apiPcUpdate: Unknown PC connected: %s", dataIn.PcId)
		render.Render(w, r, s.httpErrNotFound(err))
		return
	}
	if err != nil {
		log.Printf("apiPcUpdate: Failed to update PC %s (%v)", dataIn.PcId, err)
		render.Render(w, r, s.httpErrUnexpected(err))
		return
	}

	// keep a snapshot for historical tracking
	err = s.registry.InsertMetric(dataIn.PcId, dataIn.Data)
	if err != nil {
		log.Printf("apiPcUpdate: Failed to insert metric for %s (%v)", dataIn.PcId, err)
		render.Render(w, r, s.httpErrUnexpected(err))
		return
	}

	reportsReceived.Inc()
	if s.cfg.Http.Debug {
		log.Printf("apiPcUpdate: Updated PC %s", dataIn.PcId)
	}

	render.Render(w, r, &SuccessResponse{Success: true})
	return
}

// MetricExtView represents the external view of a metric snapshot
type MetricExtView struct {
	Id        int64     `json:"id"`
	PcId      string    `json:"pc_id"`
	CpuUsage  string    `json:"cpu_usage"`
	RamUsage  string    `json:"ram_usage"`
	DiskUsage string    `json:"disk_usage"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *MetricExtView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (s *FloorApiServer) apiPcMetrics(w http.ResponseWriter, r *http.Request) {
	pcId := getCtxValueString(r.Context(), "pcid")

	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n > 0 {
			hours = n
		}
	}

	metrics, err := s.registry.ListMetrics(pcId, hours)
	if err != nil {
		log.Printf("apiPcMetrics: Failed to query DB (%v)", err)
		render.Render(w, r, s.httpErrUnexpected(fmt.Errorf("failed to get data from backend")))
		return
	}

	outs := []render.Renderer{}
	for _, m := range metrics {
		o := &MetricExtView{
			Id:        m.Id,
			PcId:      m.PcId,
			CpuUsage:  m.CpuUsage,
			RamUsage:  m.RamUsage,
			DiskUsage: m.DiskUsage,
			Status:    m.Status,
			Timestamp: m.Timestamp,
		}

		outs = append(outs, o)
	}

	render.RenderList(w, r, outs)
	return
}
