// internal/model/record.go
package model

// Payload is the synthetic JSON body carried by every record.
type Payload struct {
	PlayerID string `json:"PlayerId"`
	Value1   string `json:"Value1"`
	Value2   string `json:"Value2"`
}

// Record is one unit of work: a sequence index and its serialized payload.
type Record struct {
	ID      int
	Payload []byte
}
