package pcagent

// Config defines the configuration structure for the PC reporting agent
type Config struct {
	Agent struct {
		PcId      string `mapstructure:"pc_id"`
		Endpoint  string `mapstructure:"endpoint"`
		Interval  int    `mapstructure:"interval"`
		IpAddress string `mapstructure:"ip_address"`
		DiskPath  string `mapstructure:"disk_path"`
		Debug     bool   `mapstructure:"debug"`
	} `mapstructure:"agent"`
}
