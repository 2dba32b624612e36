package models

import (
	"time"
)

// PC represents one monitored PC on the factory floor
type PC struct {
	Id             string    `gorm:"primaryKey;not null" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	IpAddress      string    `json:"ipAddress"`
	Status         string    `gorm:"default:offline" json:"status"`
	Cpu            string    `json:"cpu"`
	Ram            string    `json:"ram"`
	Disk           string    `json:"disk"`
	LastReboot     string    `json:"lastReboot"`
	ProductionLine string    `json:"productionLine"`
	X              int       `gorm:"default:0" json:"x"`
	Y              int       `gorm:"default:0" json:"y"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
	LastSeen       time.Time `json:"lastSeen"`
}

// PCMetric represents one immutable utilization snapshot for a PC
type PCMetric struct {
	Id        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PcId      string    `gorm:"index;not null" json:"pc_id"`
	CpuUsage  string    `json:"cpu_usage"`
	RamUsage  string    `json:"ram_usage"`
	DiskUsage string    `json:"disk_usage"`
	Status    string    `json:"status"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

// User represents an operator account for dashboard login
type User struct {
	Id           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"default:admin" json:"role"`
	CreatedAt    time.Time `json:"-"`
}
