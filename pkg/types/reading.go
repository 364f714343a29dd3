package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// UnitSystem identifies the unit system a Reading's values are expressed in.
// The numeric codes match the ones weather station software writes into the
// usUnits field of an archive record.
type UnitSystem int

const (
	US       UnitSystem = 0x01
	Metric   UnitSystem = 0x10
	MetricWX UnitSystem = 0x11
)

// String returns the conventional upper-case name of the unit system.
func (u UnitSystem) String() string {
	switch u {
	case US:
		return "US"
	case Metric:
		return "METRIC"
	case MetricWX:
		return "METRICWX"
	default:
		return fmt.Sprintf("UnitSystem(%d)", int(u))
	}
}

// Reading is one timestamped set of sensor measurements.
//
// Fields values are numbers (any Go numeric type), nil for "no data", or
// anything else, which consumers treat as non-numeric. A Reading is
// immutable once enqueued: consumers that need to change values work on a
// Clone.
type Reading struct {
	// DateTime is the observation time in seconds since the Unix epoch.
	DateTime int64 `json:"dateTime"`

	// USUnits is the unit system of every value in Fields.
	USUnits UnitSystem `json:"usUnits"`

	// Fields maps observation names (outTemp, barometer, windDir, ...) to values.
	Fields map[string]any `json:"-"`
}

// Time returns DateTime as a time.Time.
func (r Reading) Time() time.Time {
	return time.Unix(r.DateTime, 0)
}

// Clone returns a copy of r with its own Fields map.
func (r Reading) Clone() Reading {
	out := Reading{DateTime: r.DateTime, USUnits: r.USUnits}
	out.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return out
}

// Float returns the value of field name as a float64. ok is false when the
// field is absent, nil, non-numeric or NaN.
func (r Reading) Float(name string) (v float64, ok bool) {
	raw, present := r.Fields[name]
	if !present {
		return 0, false
	}
	return ToFloat(raw)
}

// ToFloat converts a Reading field value to float64. Numeric strings are
// accepted; nil, NaN and anything else are reported as not ok.
func ToFloat(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// UnmarshalJSON decodes a flat archive record such as
//
//	{"dateTime": 1767225600, "usUnits": 1, "outTemp": 32.5, "windDir": null}
//
// dateTime and usUnits populate the typed fields; every other key lands in
// Fields with numbers decoded as float64.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ts, ok := ToFloat(raw["dateTime"])
	if !ok {
		return fmt.Errorf("reading: dateTime is required")
	}
	units, ok := ToFloat(raw["usUnits"])
	if !ok {
		return fmt.Errorf("reading: usUnits is required")
	}
	delete(raw, "dateTime")
	delete(raw, "usUnits")

	r.DateTime = int64(ts)
	r.USUnits = UnitSystem(int(units))
	r.Fields = raw
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON.
func (r Reading) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["dateTime"] = r.DateTime
	out["usUnits"] = int(r.USUnits)
	return json.Marshal(out)
}
