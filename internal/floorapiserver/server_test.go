package floorapiserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"factory-floor-monitor/internal/models"
	"factory-floor-monitor/internal/registry"
)

func pcUpdateFields(fields map[string]string) registry.PCUpdate {
	u := registry.PCUpdate{}
	for k, v := range fields {
		v := v
		switch k {
		case "name":
			u.Name = &v
		case "ipAddress":
			u.IpAddress = &v
		case "status":
			u.Status = &v
		case "cpu":
			u.Cpu = &v
		case "ram":
			u.Ram = &v
		case "disk":
			u.Disk = &v
		case "lastReboot":
			u.LastReboot = &v
		}
	}

	return u
}

func findPc(t *testing.T, pcs []PCExtView, id string) PCExtView {
	t.Helper()

	for _, pc := range pcs {
		if pc.Id == id {
			return pc
		}
	}

	t.Fatalf("pc %s not found in list", id)
	return PCExtView{}
}

func newTestServer(t *testing.T) (*FloorApiServer, *httptest.Server, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "monitor.db")

	cfg := Config{}
	cfg.Db.Driver = "sqlite"
	cfg.Db.Sqlite.Path = dbPath
	cfg.Monitor.StaleTimeout = 60
	cfg.Http.Listen = "127.0.0.1:0"

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ts := httptest.NewServer(s.router())
	t.Cleanup(ts.Close)

	return s, ts, dbPath
}

// rawDb opens a second handle on the server's database so tests can
// backdate timestamps the registry always stamps with the current time.
func rawDb(t *testing.T, path string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	return db
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}

	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body interface{}, out interface{}) int {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}

	return resp.StatusCode
}

func TestApiHealth(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)

	var out HealthExtView
	if code := getJSON(t, ts.URL+"/api/health", &out); code != http.StatusOK {
		t.Fatalf("code=%d", code)
	}
	if out.Status != "OK" || out.Timestamp.IsZero() {
		t.Errorf("health=%+v", out)
	}
}

func TestApiPcs_SeededAndSorted(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)

	var pcs []PCExtView
	if code := getJSON(t, ts.URL+"/api/pcs", &pcs); code != http.StatusOK {
		t.Fatalf("code=%d", code)
	}
	if len(pcs) != 4 {
		t.Fatalf("pcs=%d want 4", len(pcs))
	}

	wantNames := []string{"line1_pc1", "line1_pc2", "line2_pc1", "line2_pc2"}
	for i, want := range wantNames {
		if pcs[i].Name != want {
			t.Errorf("pcs[%d].Name=%q want %q", i, pcs[i].Name, want)
		}
	}
}

func TestApiPcs_StalenessProjection(t *testing.T) {
	t.Parallel()

	_, ts, dbPath := newTestServer(t)

	code := postJSON(t, ts.URL+"/api/pc/update", UpdateRequest{
		PcId: "sanjai",
		Data: pcUpdateFields(map[string]string{"status": "online", "cpu": "12.0%"}),
	}, nil)
	if code != http.StatusOK {
		t.Fatalf("update code=%d", code)
	}

	var pcs []PCExtView
	getJSON(t, ts.URL+"/api/pcs", &pcs)
	if got := findPc(t, pcs, "sanjai").Status; got != "online" {
		t.Fatalf("status=%q want online after fresh contact", got)
	}

	// silence the PC past the timeout
	db := rawDb(t, dbPath)
	err := db.Model(&models.PC{}).Where("id = ?", "sanjai").
		Update("last_seen", time.Now().Add(-2*time.Minute)).Error
	if err != nil {
		t.Fatalf("backdate last_seen: %v", err)
	}

	getJSON(t, ts.URL+"/api/pcs", &pcs)
	if got := findPc(t, pcs, "sanjai").Status; got != "offline" {
		t.Errorf("status=%q want offline after timeout", got)
	}

	// the projection is view-level only; the stored row keeps its status
	var single PCExtView
	getJSON(t, ts.URL+"/api/pc/sanjai", &single)
	if single.Status != "online" {
		t.Errorf("stored status=%q want online", single.Status)
	}
}

func TestApiPcGet_NotFound(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)

	if code := getJSON(t, ts.URL+"/api/pc/ghost", nil); code != http.StatusNotFound {
		t.Errorf("code=%d want 404", code)
	}
}

func TestApiPcUpdate_UnknownId(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)

	code := postJSON(t, ts.URL+"/api/pc/update", UpdateRequest{
		PcId: "ghost",
		Data: pcUpdateFields(map[string]string{"status": "online"}),
	}, nil)
	if code != http.StatusNotFound {
		t.Fatalf("code=%d want 404", code)
	}

	// the rejected report must not leave a snapshot behind
	var metrics []MetricExtView
	getJSON(t, ts.URL+"/api/pc/ghost/metrics", &metrics)
	if len(metrics) != 0 {
		t.Errorf("metrics=%d want 0", len(metrics))
	}
}

func TestApiPcUpdate_AppendsMetricAndUpdatesFields(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)

	var ack SuccessResponse
	code := postJSON(t, ts.URL+"/api/pc/update", UpdateRequest{
		PcId: "sanjai",
		Data: pcUpdateFields(map[string]string{"cpu": "i7", "ram": "16GB"}),
	}, &ack)
	if code != http.StatusOK || !ack.Success {
		t.Fatalf("code=%d ack=%+v", code, ack)
	}

	var pc PCExtView
	getJSON(t, ts.URL+"/api/pc/sanjai", &pc)
	if pc.Cpu != "i7" || pc.Ram != "16GB" {
		t.Errorf("pc=%+v", pc)
	}
	if pc.Name != "line1_pc1" || pc.IpAddress != "" {
		t.Errorf("untouched fields changed: %+v", pc)
	}

	var metrics []MetricExtView
	getJSON(t, ts.URL+"/api/pc/sanjai/metrics", &metrics)
	if len(metrics) != 1 {
		t.Fatalf("metrics=%d want 1", len(metrics))
	}
	if metrics[0].CpuUsage != "i7" {
		t.Errorf("metric=%+v", metrics[0])
	}
}

func TestApiPcMetrics_WindowParam(t *testing.T) {
	t.Parallel()

	_, ts, dbPath := newTestServer(t)

	db := rawDb(t, dbPath)
	now := time.Now().UTC()
	rows := []models.PCMetric{
		{PcId: "santi", CpuUsage: "fresh", Timestamp: now.Add(-30 * time.Minute)},
		{PcId: "santi", CpuUsage: "old", Timestamp: now.Add(-3 * time.Hour)},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("insert metric: %v", err)
		}
	}

	var metrics []MetricExtView
	getJSON(t, ts.URL+"/api/pc/santi/metrics?hours=1", &metrics)
	if len(metrics) != 1 || metrics[0].CpuUsage != "fresh" {
		t.Errorf("metrics=%+v", metrics)
	}

	getJSON(t, ts.URL+"/api/pc/santi/metrics", &metrics)
	if len(metrics) != 2 {
		t.Errorf("metrics=%d want 2 within default window", len(metrics))
	}
}

func TestApiAdminLogin(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)

	code := postJSON(t, ts.URL+"/api/admin/login", LoginRequest{Username: "admin", Password: "wrong"}, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("code=%d want 401", code)
	}

	var out LoginResponse
	code = postJSON(t, ts.URL+"/api/admin/login", LoginRequest{Username: "admin", Password: "1234"}, &out)
	if code != http.StatusOK {
		t.Fatalf("code=%d want 200", code)
	}
	if !out.Success || out.User.Username != "admin" || out.User.Role != "admin" {
		t.Errorf("login=%+v", out)
	}
}

func TestApiStats(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)

	postJSON(t, ts.URL+"/api/pc/update", UpdateRequest{
		PcId: "bhargav",
		Data: pcUpdateFields(map[string]string{"status": "online"}),
	}, nil)

	var out StatsExtView
	if code := getJSON(t, ts.URL+"/api/stats", &out); code != http.StatusOK {
		t.Fatalf("code=%d", code)
	}
	if out.TotalPcs != 4 || out.OnlinePcs != 1 || out.OfflinePcs != 3 {
		t.Errorf("stats=%+v", out)
	}
}

func TestApiPcsLastSeen(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)

	var out []PCLastSeenExtView
	if code := getJSON(t, ts.URL+"/api/pcs/lastseen", &out); code != http.StatusOK {
		t.Fatalf("code=%d", code)
	}
	if len(out) != 4 {
		t.Fatalf("entries=%d want 4", len(out))
	}
	for _, e := range out {
		if e.Id == "" || e.Name == "" || e.LastSeen.IsZero() {
			t.Errorf("entry=%+v", e)
		}
	}
}
