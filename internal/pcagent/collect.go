package pcagent

import (
	"fmt"
	"log"
	"net"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Report is the status payload pushed to the monitor server
type Report struct {
	PcId string     `json:"pcId"`
	Data ReportData `json:"data"`
}

// ReportData carries one utilization sample plus connectivity facts
type ReportData struct {
	Cpu        string `json:"cpu"`
	Ram        string `json:"ram"`
	Disk       string `json:"disk"`
	Status     string `json:"status"`
	LastReboot string `json:"lastReboot"`
	IpAddress  string `json:"ipAddress"`
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// firstIPv4 returns the first non-loopback IPv4 address of this host.
func firstIPv4() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}

	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipnet.IP.To4()
			if ip == nil || ip.IsLoopback() {
				continue
			}

			return ip.String()
		}
	}

	return ""
}

// collect gathers one utilization sample from the local host. Any probe
// that fails degrades that field to "Unknown" rather than dropping the
// whole report.
func (s *Agent) collect() Report {
	data := ReportData{
		Status: "online",
	}

	cpuPcts, err := cpu.Percent(0, false)
	if err != nil || len(cpuPcts) == 0 {
		log.Printf("pcagent: failed to read cpu utilization (%v)", err)
		data.Cpu = "Unknown"
	} else {
		data.Cpu = formatPct(cpuPcts[0])
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Printf("pcagent: failed to read memory utilization (%v)", err)
		data.Ram = "Unknown"
	} else {
		data.Ram = formatPct(vm.UsedPercent)
	}

	du, err := disk.Usage(s.cfg.Agent.DiskPath)
	if err != nil {
		log.Printf("pcagent: failed to read disk utilization (%v)", err)
		data.Disk = "Unknown"
	} else {
		data.Disk = formatPct(du.UsedPercent)
	}

	boot, err := host.BootTime()
	if err != nil {
		log.Printf("pcagent: failed to read boot time (%v)", err)
		data.LastReboot = time.Now().UTC().Format(time.RFC3339)
	} else {
		data.LastReboot = time.Unix(int64(boot), 0).UTC().Format(time.RFC3339)
	}

	if s.cfg.Agent.IpAddress != "" {
		data.IpAddress = s.cfg.Agent.IpAddress
	} else {
		ip := firstIPv4()
		if ip == "" {
			ip = "unknown"
		}
		data.IpAddress = ip
	}

	return Report{
		PcId: s.cfg.Agent.PcId,
		Data: data,
	}
}
