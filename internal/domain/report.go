package domain

import (
	"encoding/json"
	"time"
)

// Report is a snapshot of aggregate statistics for one area on one
// calendar date. Tags map statistic names to values.
type Report struct {
	ID        int64
	AreaID    int64
	Date      time.Time
	Tags      map[string]any
	CreatedAt time.Time
}

// TagsEqual compares two report tag sets by canonical serialization, so
// int64 counts computed in-process compare equal to the float64 values
// JSONB decoding produces.
func TagsEqual(a, b map[string]any) bool {
	aj, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(aj) == string(bj)
}
