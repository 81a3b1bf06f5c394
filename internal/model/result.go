// internal/model/result.go
package model

import "time"

// Result is one measured round trip.
type Result struct {
	RecordID   int           `db:"record_id" json:"record_id"`
	WorkerID   int           `db:"worker_id" json:"worker_id"`
	SentAt     time.Time     `db:"sent_at" json:"sent_at"`
	ReceivedAt time.Time     `db:"received_at" json:"received_at"`
	Latency    time.Duration `db:"latency" json:"latency"`
	ReplySize  int           `db:"reply_size" json:"reply_size"`
	Reply      string        `json:"reply"`
}
