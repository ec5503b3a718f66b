package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// systemStatus is the operational snapshot.
type systemStatus struct {
	Service         string   `json:"service"`
	UptimeSeconds   float64  `json:"uptime_seconds"`
	Goroutines      int      `json:"goroutines"`
	CPUPercent      float64  `json:"cpu_percent"`
	MemUsedPercent  float64  `json:"mem_used_percent"`
	MemUsedMB       float64  `json:"mem_used_mb"`
	ModelsAvailable []string `json:"models_available"`
	EventListeners  int      `json:"event_listeners"`
	UseMockData     bool     `json:"use_mock_data"`
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, _ *http.Request) {
	status := systemStatus{
		Service:       "atlas",
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		UseMockData:   s.deps.Config.UseMockData,
	}

	// Sampled without an interval so the handler never blocks.
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		status.CPUPercent = pcts[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status.MemUsedPercent = vm.UsedPercent
		status.MemUsedMB = float64(vm.Used) / (1 << 20)
	}

	if s.deps.Models != nil {
		status.ModelsAvailable = s.deps.Models.Available()
	}
	if s.deps.Bus != nil {
		status.EventListeners = s.deps.Bus.Subscribers()
	}

	respondSuccess(w, status)
}
