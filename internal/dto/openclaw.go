package dto

import "time"

// GatewayHealthResponse is the gateway's /api/health payload.
type GatewayHealthResponse struct {
	Status         string  `json:"status"`
	Uptime         float64 `json:"uptime"`
	ActiveSessions int     `json:"activeSessions"`
}

type GatewayStatus struct {
	Connected bool    `json:"connected"`
	Sessions  int     `json:"sessions"`
	Uptime    float64 `json:"uptime"`
}

// StatusResponse aggregates gateway reachability with local memory stats.
type StatusResponse struct {
	Gateway     GatewayStatus `json:"gateway"`
	MemoryFiles int           `json:"memoryFiles"`
	MemorySize  int64         `json:"memorySize"`
}

// WorkerLogLine is one parsed line of the worker's log file.
type WorkerLogLine struct {
	ID        int    `json:"id"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source,omitempty"`
}

type WorkerLogsResponse struct {
	Logs   []WorkerLogLine `json:"logs"`
	LastID int             `json:"lastId"`
}

// MemoryFileInfo describes one file in the worker's memory directory.
type MemoryFileInfo struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	Type         string    `json:"type"`
}

type MemoryListResponse struct {
	Files []MemoryFileInfo `json:"files"`
}

type MemoryFileResponse struct {
	File    MemoryFileInfo `json:"file"`
	Content string         `json:"content"`
}
