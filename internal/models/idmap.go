package models

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTempID is returned when a temporary id has no durable mapping.
	ErrUnknownTempID = errors.New("unknown temporary id")
	// ErrOutOfOrder is returned when mappings are not recorded in insertion order.
	ErrOutOfOrder = errors.New("temporary id recorded out of order")
)

// IDMap maps temporary 1-based argument ids to durable storage ids. It is
// built once per run, strictly in insertion order.
type IDMap struct {
	durable []int64
}

// NewIDMap returns an empty map sized for n arguments.
func NewIDMap(n int) *IDMap {
	return &IDMap{durable: make([]int64, 0, n)}
}

// Record binds tempID to durableID. tempID must be the next position.
func (m *IDMap) Record(tempID int, durableID int64) error {
	if tempID != len(m.durable)+1 {
		return fmt.Errorf("%w: got %d, want %d", ErrOutOfOrder, tempID, len(m.durable)+1)
	}
	m.durable = append(m.durable, durableID)
	return nil
}

// Resolve returns the durable id for tempID.
func (m *IDMap) Resolve(tempID int) (int64, error) {
	if tempID < 1 || tempID > len(m.durable) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownTempID, tempID)
	}
	return m.durable[tempID-1], nil
}

// Len returns the number of recorded mappings.
func (m *IDMap) Len() int {
	return len(m.durable)
}
