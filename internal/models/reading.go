package models

import (
	"encoding/json"
	"math"
	"time"
)

// Zone is the discrete risk bucket derived from the CCI.
type Zone string

const (
	ZoneGreen  Zone = "green"
	ZoneYellow Zone = "yellow"
	ZoneRed    Zone = "red"
)

// SensorReading is one observation of a monitored line component.
// WindSpeed and AgeYears are optional; nil means the sensor did not report.
type SensorReading struct {
	Timestamp   time.Time `json:"timestamp"`
	ComponentID string    `json:"component_id"`
	Vibration   float64   `json:"vibration"`
	Temperature float64   `json:"temperature"`
	Strain      float64   `json:"strain"`
	WindSpeed   *float64  `json:"wind_speed,omitempty"`
	AgeYears    *float64  `json:"age_years,omitempty"`
	// CableState is an out-of-band ground-truth label. It is carried through
	// for offline audits and must never be used as a feature.
	CableState string `json:"cable_state,omitempty"`
}

// ZoneThresholds is the (yellow, red) cutoff pair active for a scored row.
type ZoneThresholds struct {
	Yellow float64 `json:"yellow"`
	Red    float64 `json:"red"`
}

// ScoredReading is a SensorReading enriched by the scoring pipeline.
// CCI is NaN when the row lacked enough history to score; TimeLeftHours is
// NaN on every row except the last one per component, and +Inf when no
// breach is projected.
type ScoredReading struct {
	SensorReading

	OriginalCableState string         `json:"original_cable_state,omitempty"`
	CCI                JSONFloat      `json:"cci"`
	Zone               Zone           `json:"zone"`
	ZoneThresholds     ZoneThresholds `json:"zone_thresholds"`
	TimeLeftHours      JSONFloat      `json:"time_left_hours"`
}

// JSONFloat is a float64 that survives encoding/json: NaN marshals as null,
// infinities as the strings "inf" / "-inf".
type JSONFloat float64

func (f JSONFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte("null"), nil
	case math.IsInf(v, 1):
		return []byte(`"inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-inf"`), nil
	}
	return json.Marshal(v)
}

func (f *JSONFloat) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "null":
		*f = JSONFloat(math.NaN())
		return nil
	case `"inf"`:
		*f = JSONFloat(math.Inf(1))
		return nil
	case `"-inf"`:
		*f = JSONFloat(math.Inf(-1))
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = JSONFloat(v)
	return nil
}
