// Package ingest loads sensor reading tables from CSV files, the simplest of
// the acquisition sources that feed the scoring pipeline.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"linewatch/internal/models"
)

// LoadStats counts what the loader saw and what it had to skip. The
// normalizer re-validates everything downstream; these counts exist so data
// quality problems are visible at the source.
type LoadStats struct {
	Rows    int
	Skipped int
}

// timeLayouts are tried in order when parsing the timestamp column.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// LoadCSV reads sensor readings from a headered CSV file. Mandatory columns:
// timestamp, component_id, vibration, temperature, strain. Optional:
// wind_speed, age_years, cable_state; blank optional cells mean "not
// reported". Rows with unparsable mandatory fields are skipped and counted.
func LoadCSV(path string) ([]models.SensorReading, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("ingest: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses readings from CSV content.
func Read(r io.Reader) ([]models.SensorReading, LoadStats, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("ingest: read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"timestamp", "component_id", "vibration", "temperature", "strain"} {
		if _, ok := idx[required]; !ok {
			return nil, LoadStats{}, fmt.Errorf("ingest: missing column %q", required)
		}
	}

	var (
		out   []models.SensorReading
		stats LoadStats
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed CSV line; skip it like any other bad row.
			stats.Rows++
			stats.Skipped++
			continue
		}
		stats.Rows++
		reading, ok := parseRecord(record, idx)
		if !ok {
			stats.Skipped++
			continue
		}
		out = append(out, reading)
	}
	return out, stats, nil
}

func parseRecord(record []string, idx map[string]int) (models.SensorReading, bool) {
	get := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	ts, ok := parseTime(get("timestamp"))
	if !ok {
		return models.SensorReading{}, false
	}
	vib, okV := parseFloat(get("vibration"))
	temp, okT := parseFloat(get("temperature"))
	strain, okS := parseFloat(get("strain"))
	componentID := get("component_id")
	if componentID == "" || !okV || !okT || !okS {
		return models.SensorReading{}, false
	}

	reading := models.SensorReading{
		Timestamp:   ts,
		ComponentID: componentID,
		Vibration:   vib,
		Temperature: temp,
		Strain:      strain,
		CableState:  get("cable_state"),
	}
	if v, ok := parseFloat(get("wind_speed")); ok {
		reading.WindSpeed = &v
	}
	if v, ok := parseFloat(get("age_years")); ok {
		reading.AgeYears = &v
	}
	return reading, true
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
