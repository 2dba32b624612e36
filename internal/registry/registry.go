package registry

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"factory-floor-monitor/internal/models"
)

var (
	// ErrNotFound is returned when a PC id has no row in the registry.
	ErrNotFound = errors.New("pc not found")

	// ErrInvalidCredentials is returned on any failed login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Registry wraps the database connection and provides the persistence
// operations for PCs, metric snapshots and operator accounts.
type Registry struct {
	db *gorm.DB
}

func New(db *gorm.DB) (*Registry, error) {
	err := db.AutoMigrate(&models.PC{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&models.PCMetric{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&models.User{})
	if err != nil {
		return nil, err
	}

	return &Registry{db: db}, nil
}

// PCUpdate carries a partial set of PC fields. Nil fields are left
// untouched on update and take documented defaults on create.
type PCUpdate struct {
	Name           *string `json:"name"`
	IpAddress      *string `json:"ipAddress"`
	Status         *string `json:"status"`
	Cpu            *string `json:"cpu"`
	Ram            *string `json:"ram"`
	Disk           *string `json:"disk"`
	LastReboot     *string `json:"lastReboot"`
	ProductionLine *string `json:"productionLine"`
	X              *int    `json:"x"`
	Y              *int    `json:"y"`
}

func (u PCUpdate) columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.IpAddress != nil {
		cols["ip_address"] = *u.IpAddress
	}
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	if u.Cpu != nil {
		cols["cpu"] = *u.Cpu
	}
	if u.Ram != nil {
		cols["ram"] = *u.Ram
	}
	if u.Disk != nil {
		cols["disk"] = *u.Disk
	}
	if u.LastReboot != nil {
		cols["last_reboot"] = *u.LastReboot
	}
	if u.ProductionLine != nil {
		cols["production_line"] = *u.ProductionLine
	}
	if u.X != nil {
		cols["x"] = *u.X
	}
	if u.Y != nil {
		cols["y"] = *u.Y
	}

	return cols
}

func strOr(p *string, def string) string {
	if p != nil && *p != "" {
		return *p
	}
	return def
}

func intOr(p *int, def int) int {
	if p != nil {
		return *p
	}
	return def
}

// ListPCs returns all registered PCs ordered by name.
func (r *Registry) ListPCs() ([]models.PC, error) {
	pcs := make([]models.PC, 0)
	ret := r.db.Order("name asc").Find(&pcs)
	if ret.Error != nil {
		return nil, ret.Error
	}

	return pcs, nil
}

// GetPC returns one PC by id, or ErrNotFound.
func (r *Registry) GetPC(id string) (*models.PC, error) {
	pc := models.PC{}
	ret := r.db.Where("id = ?", id).First(&pc)
	if ret.Error != nil {
		if errors.Is(ret.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, ret.Error
	}

	return &pc, nil
}

// CreatePC inserts a new PC with defaults for any field not supplied.
// A duplicate id is silently dropped, never overwritten, which keeps
// provisioning safe to repeat.
func (r *Registry) CreatePC(id string, upd PCUpdate) error {
	now := time.Now().UTC()
	pc := models.PC{
		Id:             id,
		Name:           strOr(upd.Name, "PC-"+id),
		IpAddress:      strOr(upd.IpAddress, "unknown"),
		Status:         strOr(upd.Status, "online"),
		Cpu:            strOr(upd.Cpu, "Unknown"),
		Ram:            strOr(upd.Ram, "Unknown"),
		Disk:           strOr(upd.Disk, "Unknown"),
		LastReboot:     strOr(upd.LastReboot, now.Format(time.RFC3339)),
		ProductionLine: strOr(upd.ProductionLine, "general"),
		X:              intOr(upd.X, 0),
		Y:              intOr(upd.Y, 0),
		LastSeen:       now,
	}

	ret := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&pc)
	return ret.Error
}

// UpdatePC applies a partial update. Only supplied fields change, but
// last_seen and updated_at are stamped on every call.
func (r *Registry) UpdatePC(id string, upd PCUpdate) error {
	now := time.Now()
	cols := upd.columns()
	cols["last_seen"] = now
	cols["updated_at"] = now

	ret := r.db.Model(&models.PC{}).Where("id = ?", id).Updates(cols)
	if ret.Error != nil {
		return ret.Error
	}
	if ret.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// InsertMetric appends one immutable snapshot row with a server-assigned
// capture time. The PC id is not checked against the pcs table.
func (r *Registry) InsertMetric(id string, upd PCUpdate) error {
	m := models.PCMetric{
		PcId:      id,
		CpuUsage:  strOr(upd.Cpu, ""),
		RamUsage:  strOr(upd.Ram, ""),
		DiskUsage: strOr(upd.Disk, ""),
		Status:    strOr(upd.Status, ""),
		Timestamp: time.Now().UTC(),
	}

	return r.db.Create(&m).Error
}

// ListMetrics returns snapshots for one PC within the lookback window,
// newest first. A non-positive window falls back to 24 hours.
func (r *Registry) ListMetrics(id string, hours int) ([]models.PCMetric, error) {
	if hours <= 0 {
		hours = 24
	}
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	metrics := make([]models.PCMetric, 0)
	ret := r.db.Where("pc_id = ? AND timestamp >= ?", id, since).Order("timestamp desc").Find(&metrics)
	if ret.Error != nil {
		return nil, ret.Error
	}

	return metrics, nil
}

// Authenticate checks one username/password pair against the stored
// bcrypt hash. The result is the entire trust decision; no session is
// issued and no lockout is applied.
func (r *Registry) Authenticate(username string, password string) (*models.User, error) {
	user := models.User{}
	ret := r.db.Where("username = ?", username).First(&user)
	if ret.Error != nil {
		if errors.Is(ret.Error, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, ret.Error
	}

	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// SystemStats are the aggregate counts for the stats endpoint.
type SystemStats struct {
	TotalPcs   int64 `json:"total_pcs"`
	OnlinePcs  int64 `json:"online_pcs"`
	OfflinePcs int64 `json:"offline_pcs"`
}

// Stats counts PCs by their stored connectivity status.
func (r *Registry) Stats() (SystemStats, error) {
	var s SystemStats

	ret := r.db.Model(&models.PC{}).Count(&s.TotalPcs)
	if ret.Error != nil {
		return s, ret.Error
	}

	ret = r.db.Model(&models.PC{}).Where("status = ?", "online").Count(&s.OnlinePcs)
	if ret.Error != nil {
		return s, ret.Error
	}

	ret = r.db.Model(&models.PC{}).Where("status = ?", "offline").Count(&s.OfflinePcs)
	if ret.Error != nil {
		return s, ret.Error
	}

	return s, nil
}
