package model

import (
	"time"
)

// WorkerStatus worker node status
type WorkerStatus string

const (
	WorkerStatusUnspecified WorkerStatus = "UNSPECIFIED"
	WorkerStatusActive      WorkerStatus = "ACTIVE"     // heartbeating and accepting work
	WorkerStatusIdle        WorkerStatus = "IDLE"       // heartbeating, no work in flight
	WorkerStatusUnhealthy   WorkerStatus = "UNHEALTHY"  // heartbeat missed beyond the timeout
	WorkerStatusTerminated  WorkerStatus = "TERMINATED" // deregistered
)

// Valid reports whether s is a status a worker may report.
func (s WorkerStatus) Valid() bool {
	switch s {
	case WorkerStatusActive, WorkerStatusIdle, WorkerStatusUnhealthy, WorkerStatusTerminated:
		return true
	}
	return false
}

// Worker a registered compute participant
type Worker struct {
	ID            string            `json:"worker_id"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Status        WorkerStatus      `json:"status"`
	RegisteredAt  time.Time         `json:"registered_at"`
	LastHeartbeat time.Time         `json:"last_heartbeat"`
}

// RegisterWorkerRequest worker registration request
type RegisterWorkerRequest struct {
	WorkerID string            `json:"worker_id" binding:"required"`
	Metadata map[string]string `json:"metadata"`
}

// HeartbeatRequest heartbeat request
type HeartbeatRequest struct {
	Status WorkerStatus `json:"status"`
}
