package registry

import (
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"

	"factory-floor-monitor/internal/models"
)

const (
	defaultAdminUser     = "admin"
	defaultAdminPassword = "1234"
	defaultAdminRole     = "admin"
)

// defaultPCs is the canonical device set for the two finishing lines.
// Positions are floor-plan coordinates for the dashboard diagram.
func defaultPCs(now time.Time) []models.PC {
	reboot := now.Format(time.RFC3339)

	return []models.PC{
		{
			Id:             "sanjai",
			Name:           "line1_pc1",
			IpAddress:      "",
			Status:         "offline",
			Cpu:            "Unknown",
			Ram:            "Unknown",
			Disk:           "Unknown",
			LastReboot:     reboot,
			ProductionLine: "finishing-line-1",
			X:              24,
			Y:              148,
			LastSeen:       now,
		},
		{
			Id:             "santi",
			Name:           "line1_pc2",
			IpAddress:      "",
			Status:         "offline",
			Cpu:            "Unknown",
			Ram:            "Unknown",
			Disk:           "Unknown",
			LastReboot:     reboot,
			ProductionLine: "finishing-line-1",
			X:              30,
			Y:              148,
			LastSeen:       now,
		},
		{
			Id:             "bhargav",
			Name:           "line2_pc1",
			IpAddress:      "",
			Status:         "offline",
			Cpu:            "Unknown",
			Ram:            "Unknown",
			Disk:           "Unknown",
			LastReboot:     reboot,
			ProductionLine: "finishing-line-2",
			X:              50,
			Y:              148,
			LastSeen:       now,
		},
		{
			Id:             "prassanna",
			Name:           "line2_pc2",
			IpAddress:      "",
			Status:         "offline",
			Cpu:            "Unknown",
			Ram:            "Unknown",
			Disk:           "Unknown",
			LastReboot:     reboot,
			ProductionLine: "finishing-line-2",
			X:              56,
			Y:              148,
			LastSeen:       now,
		},
	}
}

// Seed provisions the canonical PCs and the default admin account.
// Inserts are insert-or-ignore, so running it again is a no-op.
func (r *Registry) Seed() error {
	now := time.Now().UTC()

	for _, pc := range defaultPCs(now) {
		ret := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&pc)
		if ret.Error != nil {
			return ret.Error
		}
	}

	var count int64
	ret := r.db.Model(&models.User{}).Where("username = ?", defaultAdminUser).Count(&count)
	if ret.Error != nil {
		return ret.Error
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := models.User{
		Username:     defaultAdminUser,
		PasswordHash: string(hash),
		Role:         defaultAdminRole,
	}

	err = r.db.Create(&user).Error
	if err != nil {
		return err
	}

	log.Printf("registry: default admin user created (username: %s)", defaultAdminUser)

	return nil
}
