package floorwatch

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"factory-floor-monitor/internal/status"
)

// buildURL constructs a properly formatted URL with the given endpoint and URI
func buildURL(endpoint string, uri string) string {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return "http://" + endpoint + uri
	}
	return endpoint + uri
}

// PCStatus mirrors the wire format of GET /api/pcs
type PCStatus struct {
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

// Watcher polls the monitor API, applies its own staleness view on top
// of the server's, and raises one-shot reboot alerts. Its offline view
// may disagree with the server's for up to one poll interval; that is
// accepted, the design favors immediate local feedback.
type Watcher struct {
	cfg      Config
	notifier Notifier

	httpClient *http.Client

	mu        sync.Mutex
	pcs       []PCStatus
	fetchedAt map[string]time.Time
	alerted   map[string]bool
	loaded    bool

	now func() time.Time

	intvlTicker *time.Ticker
	killSig     chan struct{}
	wg          *sync.WaitGroup
}

// New builds a watcher. A nil notifier selects SMTP when a host is
// configured and the process log otherwise.
func New(cfg Config, notifier Notifier) (*Watcher, error) {
	if cfg.Watch.Endpoint == "" {
		return nil, fmt.Errorf("missing endpoint")
	}
	if cfg.Watch.PollInterval <= 0 {
		cfg.Watch.PollInterval = 5
	}
	if cfg.Watch.StaleTimeout <= 0 {
		cfg.Watch.StaleTimeout = int(status.DefaultStaleTimeout / time.Second)
	}

	if notifier == nil {
		if cfg.Smtp.Host != "" {
			notifier = NewSmtpNotifier(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.User,
				cfg.Smtp.Password, cfg.Smtp.From, cfg.Smtp.To)
		} else {
			notifier = &LogNotifier{}
		}
	}

	s := &Watcher{
		cfg:      cfg,
		notifier: notifier,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		fetchedAt: make(map[string]time.Time),
		alerted:   make(map[string]bool),
		now:       time.Now,
	}

	return s, nil
}

func (s *Watcher) staleTimeout() time.Duration {
	return time.Duration(s.cfg.Watch.StaleTimeout) * time.Second
}

func (s *Watcher) fetchPCs() ([]PCStatus, error) {
	// build request
	reqURL := buildURL(s.cfg.Watch.Endpoint, "/api/pcs")
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invalid status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	pcs := make([]PCStatus, 0)
	err = json.Unmarshal(body, &pcs)
	if err != nil {
		return nil, err
	}

	return pcs, nil
}

// poll fetches the current PC list and evaluates alerts. On a failed
// fetch the previously rendered list is kept; before the first
// successful load there is nothing to keep.
func (s *Watcher) poll() {
	pcs, err := s.fetchPCs()
	if err != nil {
		log.Printf("floorwatch: failed to fetch PC data (%v)", err)
		return
	}

	tNow := s.now()

	s.mu.Lock()
	for _, pc := range pcs {
		s.fetchedAt[pc.Id] = tNow
	}
	s.pcs = pcs
	s.loaded = true
	s.mu.Unlock()

	s.evaluate(tNow)
}

// evaluate classifies every PC and raises at most one alert per PC.
// The alerted flag clears when the PC's tier returns to OK, so a PC
// that gets rebooted and later drifts into the window alerts again.
func (s *Watcher) evaluate(tNow time.Time) {
	s.mu.Lock()
	pcs := s.pcs
	s.mu.Unlock()

	for _, pc := range pcs {
		c, err := status.Classify(pc.LastReboot, tNow)
		if err != nil {
			log.Printf("floorwatch: %s has invalid lastReboot (%v)", pc.Id, err)
			continue
		}

		switch c.Tier {
		case status.TierCritical:
			if s.alertOnce(pc.Id) {
				subject := fmt.Sprintf("CRITICAL: %s reboot overdue", pc.Name)
				body := fmt.Sprintf("CRITICAL: %s (%s) has not been rebooted for %d days! Reboot immediately!",
					pc.Name, pc.IpAddress, c.Days)
				s.notify(subject, body)
			}

		case status.TierDue:
			daysLeft, ok := status.ShouldAlert(pc.LastReboot, tNow)
			if ok && s.alertOnce(pc.Id) {
				subject := fmt.Sprintf("WARNING: %s reboot due", pc.Name)
				body := fmt.Sprintf("WARNING: %s (%s) has not been rebooted for %d days. Please reboot within %d days!",
					pc.Name, pc.IpAddress, c.Days, daysLeft)
				s.notify(subject, body)
			}

		default:
			// tier left the alert band, allow a future alert again
			s.mu.Lock()
			delete(s.alerted, pc.Id)
			s.mu.Unlock()
		}
	}
}

// alertOnce marks the PC as alerted and reports whether it was not
// already marked.
func (s *Watcher) alertOnce(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.alerted[id] {
		return false
	}
	s.alerted[id] = true

	return true
}

func (s *Watcher) notify(subject string, body string) {
	err := s.notifier.Notify(subject, body)
	if err != nil {
		log.Printf("floorwatch: failed to deliver alert (%v)", err)
	}
}

// PCs returns the current view of the floor with the watcher's own
// staleness projection applied on top of the last fetched list.
func (s *Watcher) PCs() []PCStatus {
	tNow := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]PCStatus, 0, len(s.pcs))
	for _, pc := range s.pcs {
		if status.IsStale(s.fetchedAt[pc.Id], tNow, s.staleTimeout()) {
			pc.Status = "offline"
		}
		out = append(out, pc)
	}

	return out
}

func (s *Watcher) finish() {
	if s.intvlTicker != nil {
		s.intvlTicker.Stop()
	}

	if s.wg != nil {
		s.wg.Done()
	}

	log.Printf("floorwatch: finished poll thread")
}

func (s *Watcher) loop(wg *sync.WaitGroup, killSig chan struct{}) {
	log.Printf("floorwatch: start poll thread (endpoint %s, interval %d)",
		s.cfg.Watch.Endpoint, s.cfg.Watch.PollInterval)

	// init
	s.intvlTicker = time.NewTicker(time.Duration(s.cfg.Watch.PollInterval) * time.Second)
	s.killSig = killSig
	s.wg = wg

	// start
	wg.Add(1)
	defer s.finish()

	s.poll()
	for {
		select {
		case <-killSig:
			return
		case <-s.intvlTicker.C:
			s.poll()
		}
	}
}

func (s *Watcher) Run() error {
	wg := &sync.WaitGroup{}
	killSig := make(chan struct{}, 1)
	go s.loop(wg, killSig)

	// Main thread to wait until we get a kill signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	<-sig

	log.Printf("Caught kill signal, shutting down")
	close(killSig)
	wg.Wait()

	log.Printf("All threads exited")

	return nil
}
