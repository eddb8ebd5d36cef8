package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/Snaptraks/FateBot/constants"
	"github.com/Snaptraks/FateBot/utils"
)

// Status is the health check response body.
type Status struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Uptime       string            `json:"uptime"`
	Version      string            `json:"version"`
	GoVersion    string            `json:"go_version"`
	Memory       string            `json:"memory_usage"`
	ActiveEvents int               `json:"active_events"`
	Checks       map[string]string `json:"checks,omitempty"`
}

var startTime = time.Now()

// Checker reports whether one dependency is healthy.
type Checker func() error

var (
	checkersMu sync.RWMutex
	checkers   = make(map[string]Checker)

	activeEventsFn func() int
)

// RegisterChecker adds a named dependency check to the health report.
func RegisterChecker(name string, check Checker) {
	checkersMu.Lock()
	defer checkersMu.Unlock()
	checkers[name] = check
}

// SetActiveEventsFunc wires the live session count into the report.
func SetActiveEventsFunc(fn func() int) {
	checkersMu.Lock()
	defer checkersMu.Unlock()
	activeEventsFn = fn
}

// StartHealthServer serves the health endpoint on port, in a goroutine.
func StartHealthServer(port string) {
	if port == "" {
		port = constants.DefaultHTTPPort
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/", healthHandler)

	go func() {
		utils.Info("Health check server starting on port %s", port)
		if err := http.ListenAndServe(":"+port, nil); err != nil {
			utils.Error("Health server error: %v", err)
		}
	}()
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	checkersMu.RLock()
	checks := make(map[string]string, len(checkers))
	healthy := true
	for name, check := range checkers {
		if err := check(); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}
	activeEvents := 0
	if activeEventsFn != nil {
		activeEvents = activeEventsFn()
	}
	checkersMu.RUnlock()

	status := Status{
		Status:       "healthy",
		Timestamp:    time.Now(),
		Uptime:       time.Since(startTime).String(),
		Version:      "v1.0.0",
		GoVersion:    runtime.Version(),
		Memory:       fmt.Sprintf("%.2f MB", float64(memStats.Alloc)/1024/1024),
		ActiveEvents: activeEvents,
		Checks:       checks,
	}

	code := http.StatusOK
	if !healthy {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
