package floorapiserver

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"factory-floor-monitor/internal/registry"
	"factory-floor-monitor/internal/status"
)

type FloorApiServer struct {
	cfg      Config
	registry *registry.Registry
}

/* Main */
func getDbConn(cfg Config) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	switch cfg.Db.Driver {
	case "mysql":
		if cfg.Db.Mysql.User == "" || cfg.Db.Mysql.Host == "" || cfg.Db.Mysql.Database == "" {
			return nil, fmt.Errorf("missing connection info")
		}

		dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.Db.Mysql.User, cfg.Db.Mysql.Password, cfg.Db.Mysql.Host, cfg.Db.Mysql.Database)
		db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, err
		}

	case "sqlite":
		if cfg.Db.Sqlite.Path == "" {
			return nil, fmt.Errorf("missing sqlite path")
		}

		db, err = gorm.Open(sqlite.Open(cfg.Db.Sqlite.Path), &gorm.Config{})
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown db driver %s", cfg.Db.Driver)
	}

	if cfg.Db.Debug {
		db.Logger = db.Logger.LogMode(logger.Info)
	}

	return db, err
}

func New(cfg Config) (*FloorApiServer, error) {
	var err error

	// Base Initialization
	s := &FloorApiServer{
		cfg: cfg,
	}

	// DB Conn Initialization
	dbConn, err := getDbConn(cfg)
	if err != nil {
		return nil, err
	}

	s.registry, err = registry.New(dbConn)
	if err != nil {
		log.Printf("failed to automigrate database %v", err)
		return nil, err
	}

	// Provision canonical PCs and the default admin; safe to repeat
	err = s.registry.Seed()
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *FloorApiServer) staleTimeout() time.Duration {
	if s.cfg.Monitor.StaleTimeout <= 0 {
		return status.DefaultStaleTimeout
	}
	return time.Duration(s.cfg.Monitor.StaleTimeout) * time.Second
}

func (s *FloorApiServer) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(httpMetrics)

	r.Get("/api", s.apiIndex)
	r.Get("/api/stats", s.apiStats)
	r.Get("/api/health", s.apiHealth)

	r.Route("/api/pcs", func(r chi.Router) {
		r.Mount("/", s.apiPcsRouter())
	})

	r.Route("/api/pc", func(r chi.Router) {
		r.Mount("/", s.apiPcRouter())
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Mount("/", s.apiAdminRouter())
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *FloorApiServer) Run() error {
	// Start HTTP Handler
	err := http.ListenAndServe(s.cfg.Http.Listen, s.router())
	if err != nil {
		log.Fatal(err)
	}

	return nil
}
