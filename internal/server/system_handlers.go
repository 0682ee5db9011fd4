package server

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/portfolio-management-app/money-master/internal/api"
	"github.com/portfolio-management-app/money-master/internal/database"
)

// SystemHandlers answers status and diagnostics requests.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases []*database.DB
	startedAt time.Time
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(log zerolog.Logger, dataDir string, dbs ...*database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		databases: dbs,
		startedAt: time.Now(),
	}
}

// HandleSystemStatus handles GET /system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"uptimeSeconds": int64(time.Since(h.startedAt).Seconds()),
	}

	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		status["cpuPercent"] = cpuPercent[0]
	}
	if memStat, err := mem.VirtualMemory(); err == nil {
		status["memory"] = map[string]interface{}{
			"usedPercent": memStat.UsedPercent,
			"totalMB":     memStat.Total / 1024 / 1024,
			"usedMB":      memStat.Used / 1024 / 1024,
		}
	}
	if diskStat, err := disk.Usage(h.dataDir); err == nil {
		status["disk"] = map[string]interface{}{
			"usedPercent": diskStat.UsedPercent,
			"freeGB":      float64(diskStat.Free) / 1024 / 1024 / 1024,
		}
	}

	api.RespondData(w, http.StatusOK, status)
}

// HandleDatabaseStats handles GET /system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := make([]map[string]interface{}, 0, len(h.databases))
	for _, db := range h.databases {
		entry := map[string]interface{}{
			"name": db.Name(),
			"path": filepath.Base(db.Path()),
		}
		if info, err := os.Stat(db.Path()); err == nil {
			entry["sizeBytes"] = info.Size()
		}
		if err := db.Conn().Ping(); err != nil {
			entry["healthy"] = false
			entry["error"] = err.Error()
		} else {
			entry["healthy"] = true
		}
		stats = append(stats, entry)
	}
	api.RespondData(w, http.StatusOK, stats)
}
