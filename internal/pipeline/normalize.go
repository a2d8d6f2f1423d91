package pipeline

import (
	"math"
	"sort"

	"linewatch/internal/models"
)

// NormalizeStats reports how many input rows the normalizer saw and how many
// it excluded. Callers that care about data quality compare the two.
type NormalizeStats struct {
	Input   int
	Dropped int
}

// Kept returns the number of rows that survived normalization.
func (s NormalizeStats) Kept() int { return s.Input - s.Dropped }

// Normalize validates and orders raw readings. Rows missing a mandatory
// field (zero timestamp, empty component id, NaN core signal) are silently
// excluded; the survivors come back as a fresh slice sorted by
// (component_id, timestamp) ascending. The input slice is never mutated.
// Duplicate (component, timestamp) pairs pass through untouched; the sort is
// stable so their relative order is preserved.
func Normalize(rows []models.SensorReading) ([]models.SensorReading, NormalizeStats) {
	stats := NormalizeStats{Input: len(rows)}

	out := make([]models.SensorReading, 0, len(rows))
	for _, r := range rows {
		if !validReading(r) {
			stats.Dropped++
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ComponentID != out[j].ComponentID {
			return out[i].ComponentID < out[j].ComponentID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, stats
}

func validReading(r models.SensorReading) bool {
	if r.Timestamp.IsZero() || r.ComponentID == "" {
		return false
	}
	if math.IsNaN(r.Vibration) || math.IsNaN(r.Temperature) || math.IsNaN(r.Strain) {
		return false
	}
	return true
}

// componentGroups returns [start, end) index pairs of each component's
// contiguous run in a normalized slice. Order within a group is ascending
// time; order across groups is irrelevant to every consumer.
func componentGroups(rows []models.SensorReading) [][2]int {
	var groups [][2]int
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].ComponentID != rows[start].ComponentID {
			groups = append(groups, [2]int{start, i})
			start = i
		}
	}
	return groups
}
