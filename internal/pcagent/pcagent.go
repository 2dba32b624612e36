package pcagent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
)

// buildURL constructs a properly formatted URL with the given endpoint and URI
func buildURL(endpoint string, uri string) string {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return "http://" + endpoint + uri
	}
	return endpoint + uri
}

// Agent periodically collects local utilization and pushes status
// reports to the monitor server.
type Agent struct {
	cfg Config

	httpClient  *http.Client
	intvlTicker *time.Ticker
	killSig     chan struct{}
	wg          *sync.WaitGroup
}

func New(cfg Config) (*Agent, error) {
	if cfg.Agent.PcId == "" {
		return nil, fmt.Errorf("missing pc_id")
	}
	if cfg.Agent.Endpoint == "" {
		return nil, fmt.Errorf("missing endpoint")
	}
	if cfg.Agent.Interval <= 0 {
		cfg.Agent.Interval = 30
	}
	if cfg.Agent.DiskPath == "" {
		cfg.Agent.DiskPath = "/"
	}

	s := &Agent{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	return s, nil
}

func (s *Agent) sendReport() {
	report := s.collect()

	payload, err := json.Marshal(report)
	if err != nil {
		log.Printf("pcagent: failed to marshal report (%v)", err)
		return
	}

	// build request
	reqURL := buildURL(s.cfg.Agent.Endpoint, "/api/pc/update")
	req, err := http.NewRequest(http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		log.Printf("pcagent: failed to build HTTP request (%v)", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	// start request
	if s.cfg.Agent.Debug {
		log.Printf("pcagent: start HTTP POST request: url %s", reqURL)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("pcagent: HTTP request failure (%v)", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("pcagent: HTTP request has returned status code %d", resp.StatusCode)
		return
	}

	if s.cfg.Agent.Debug {
		log.Printf("pcagent: report sent for %s", s.cfg.Agent.PcId)
	}
}

func (s *Agent) finish() {
	if s.intvlTicker != nil {
		s.intvlTicker.Stop()
	}

	if s.wg != nil {
		s.wg.Done()
	}

	log.Printf("pcagent: finished report thread")
}

func (s *Agent) loop(wg *sync.WaitGroup, killSig chan struct{}) {
	log.Printf("pcagent: start report thread (pc %s, interval %d)", s.cfg.Agent.PcId, s.cfg.Agent.Interval)

	// init
	s.intvlTicker = time.NewTicker(time.Duration(s.cfg.Agent.Interval) * time.Second)
	s.killSig = killSig
	s.wg = wg

	// start
	wg.Add(1)
	defer s.finish()

	s.sendReport()
	for {
		select {
		case <-killSig:
			return
		case <-s.intvlTicker.C:
			s.sendReport()
		}
	}
}

func (s *Agent) Run() error {
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
