package floorwatch

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeNotifier struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
}

func (n *fakeNotifier) Notify(subject string, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subjects = append(n.subjects, subject)
	n.bodies = append(n.bodies, body)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subjects)
}

type fakeFloorApi struct {
	mu   sync.Mutex
	pcs  []PCStatus
	fail bool
}

func (f *fakeFloorApi) set(pcs []PCStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pcs = pcs
}

func (f *fakeFloorApi) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeFloorApi) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if f.fail {
			http.Error(w, `{"error":"Database error"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(f.pcs)
	})
}

func newTestWatcher(t *testing.T, api *fakeFloorApi) (*Watcher, *fakeNotifier, *time.Time) {
	t.Helper()

	ts := httptest.NewServer(api.handler())
	t.Cleanup(ts.Close)

	cfg := Config{}
	cfg.Watch.Endpoint = ts.URL
	cfg.Watch.PollInterval = 5
	cfg.Watch.StaleTimeout = 60

	notifier := &fakeNotifier{}
	w, err := New(cfg, notifier)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	return w, notifier, &now
}

func pcRebootedDaysAgo(id string, name string, now time.Time, days int) PCStatus {
	return PCStatus{
		Id:         id,
		Name:       name,
		IpAddress:  "192.168.10.51",
		Status:     "online",
		LastReboot: now.Add(-time.Duration(days) * 24 * time.Hour).Format(time.RFC3339),
		LastSeen:   now,
	}
}

func TestPoll_DueAlertCountdown(t *testing.T) {
	t.Parallel()

	api := &fakeFloorApi{}
	w, notifier, now := newTestWatcher(t, api)
	api.set([]PCStatus{pcRebootedDaysAgo("sanjai", "line1_pc1", *now, 9)})

	w.poll()

	if notifier.count() != 1 {
		t.Fatalf("alerts=%d want 1", notifier.count())
	}
	if !strings.Contains(notifier.bodies[0], "9 days") || !strings.Contains(notifier.bodies[0], "within 1 days") {
		t.Errorf("body=%q", notifier.bodies[0])
	}
	if !strings.HasPrefix(notifier.subjects[0], "WARNING") {
		t.Errorf("subject=%q", notifier.subjects[0])
	}

	// same tier on the next poll must not re-alert
	w.poll()
	if notifier.count() != 1 {
		t.Errorf("alerts=%d want 1 after second poll", notifier.count())
	}
}

func TestPoll_CriticalAlert(t *testing.T) {
	t.Parallel()

	api := &fakeFloorApi{}
	w, notifier, now := newTestWatcher(t, api)
	api.set([]PCStatus{pcRebootedDaysAgo("bhargav", "line2_pc1", *now, 12)})

	w.poll()

	if notifier.count() != 1 {
		t.Fatalf("alerts=%d want 1", notifier.count())
	}
	if !strings.HasPrefix(notifier.subjects[0], "CRITICAL") {
		t.Errorf("subject=%q", notifier.subjects[0])
	}
	if !strings.Contains(notifier.bodies[0], "12 days") {
		t.Errorf("body=%q", notifier.bodies[0])
	}
}

func TestAlertFlag_ResetsWhenTierReturnsOK(t *testing.T) {
	t.Parallel()

	api := &fakeFloorApi{}
	w, notifier, now := newTestWatcher(t, api)

	api.set([]PCStatus{pcRebootedDaysAgo("santi", "line1_pc2", *now, 8)})
	w.poll()
	if notifier.count() != 1 {
		t.Fatalf("alerts=%d want 1", notifier.count())
	}

	// the PC gets rebooted, tier returns to OK and the flag clears
	api.set([]PCStatus{pcRebootedDaysAgo("santi", "line1_pc2", *now, 0)})
	w.poll()
	if notifier.count() != 1 {
		t.Fatalf("alerts=%d want 1 after reboot", notifier.count())
	}

	// drifting back into the window alerts again
	api.set([]PCStatus{pcRebootedDaysAgo("santi", "line1_pc2", *now, 8)})
	w.poll()
	if notifier.count() != 2 {
		t.Fatalf("alerts=%d want 2 after re-entering window", notifier.count())
	}
	if !strings.Contains(notifier.bodies[1], "within 2 days") {
		t.Errorf("body=%q", notifier.bodies[1])
	}
}

func TestPoll_FetchFailureKeepsPreviousList(t *testing.T) {
	t.Parallel()

	api := &fakeFloorApi{}
	w, _, now := newTestWatcher(t, api)
	api.set([]PCStatus{pcRebootedDaysAgo("sanjai", "line1_pc1", *now, 1)})

	w.poll()
	if len(w.PCs()) != 1 {
		t.Fatalf("pcs=%d want 1", len(w.PCs()))
	}

	api.setFail(true)
	w.poll()
	if len(w.PCs()) != 1 {
		t.Errorf("pcs=%d want 1 after failed fetch", len(w.PCs()))
	}
}

func TestPoll_FirstLoadFailureRendersEmpty(t *testing.T) {
	t.Parallel()

	api := &fakeFloorApi{}
	api.setFail(true)
	w, notifier, _ := newTestWatcher(t, api)

	w.poll()

	if len(w.PCs()) != 0 {
		t.Errorf("pcs=%d want 0", len(w.PCs()))
	}
	if w.loaded {
		t.Error("loaded should stay false")
	}
	if notifier.count() != 0 {
		t.Errorf("alerts=%d want 0", notifier.count())
	}
}

func TestPCs_LocalStalenessProjection(t *testing.T) {
	t.Parallel()

	api := &fakeFloorApi{}
	w, _, now := newTestWatcher(t, api)
	api.set([]PCStatus{pcRebootedDaysAgo("prassanna", "line2_pc2", *now, 1)})

	w.poll()
	if got := w.PCs()[0].Status; got != "online" {
		t.Fatalf("status=%q want online", got)
	}

	// no successful fetch for longer than the timeout: the watcher's
	// own view flips to offline without consulting the server
	*now = now.Add(2 * time.Minute)
	if got := w.PCs()[0].Status; got != "offline" {
		t.Errorf("status=%q want offline", got)
	}
}
