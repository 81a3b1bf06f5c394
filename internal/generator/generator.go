// internal/generator/generator.go
package generator

import (
	"encoding/json"
	"errors"
	"fmt"

	"message-sender/internal/model"
)

// PlayerCycle is the period of the entity key.
const PlayerCycle = 1000

var ErrInvalidCount = errors.New("message count must be at least 1")

// Generate builds n records with ids 0..n-1. The output depends only on n.
func Generate(n int) ([]model.Record, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, n)
	}

	records := make([]model.Record, n)
	for i := range records {
		body, err := json.Marshal(NewPayload(i))
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records[i] = model.Record{ID: i, Payload: body}
	}
	return records, nil
}

func NewPayload(i int) model.Payload {
	value := fmt.Sprintf("example_%d", i)
	return model.Payload{
		PlayerID: fmt.Sprintf("player%d", i%PlayerCycle),
		Value1:   value,
		Value2:   value,
	}
}
