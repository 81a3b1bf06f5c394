// internal/model/run.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunRequest describes a batch to send. It is shared by the console prompt,
// the HTTP API and the request queue.
type RunRequest struct {
	Address      string `json:"address"`
	Port         int    `json:"port"`
	MessageCount int    `json:"message_count"`

	// Operator is taken from the API token, never from the request body.
	Operator string `json:"-"`
}

// LatencyStats summarizes the round trips of one run.
type LatencyStats struct {
	Count int           `json:"count"`
	Min   time.Duration `json:"min"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
	Max   time.Duration `json:"max"`
}

type Run struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	Operator      string        `db:"operator" json:"operator,omitempty"`
	Target        string        `db:"target" json:"target"`
	MessageCount  int           `db:"message_count" json:"message_count"`
	Workers       int           `db:"workers" json:"workers"`
	Sent          int           `db:"sent" json:"sent"`
	Received      int           `db:"received" json:"received"`
	FailedWorkers int           `db:"failed_workers" json:"failed_workers"`
	Status        RunStatus     `db:"status" json:"status"`
	Error         string        `db:"error" json:"error,omitempty"`
	StartedAt     time.Time     `db:"started_at" json:"started_at"`
	FinishedAt    time.Time     `db:"finished_at" json:"finished_at"`
	Elapsed       time.Duration `db:"elapsed" json:"elapsed"`
	Latency       LatencyStats  `json:"latency"`
}
