package units

import (
	"errors"
	"fmt"

	"github.com/wetterblick/uploader/pkg/types"
)

// ErrUnsupportedUnits is returned when a source or target unit system is not
// one of US, METRIC or METRICWX.
var ErrUnsupportedUnits = errors.New("unsupported unit system")

// Converter converts a Reading into another unit system. Implementations
// must not modify the Reading they are given.
type Converter interface {
	Convert(r types.Reading, target types.UnitSystem) (types.Reading, error)
}

// linear maps a value v expressed in some unit to the group's base unit as
// v*scale + offset.
type linear struct {
	scale  float64
	offset float64
}

func (l linear) toBase(v float64) float64   { return v*l.scale + l.offset }
func (l linear) fromBase(b float64) float64 { return (b - l.offset) / l.scale }

// group is a family of observations sharing a physical dimension.
type group map[types.UnitSystem]linear

// Base units: degree_C, hPa, meter_per_second, mm, mm_per_hour.
var (
	groupTemperature = group{
		types.US:       {scale: 5.0 / 9.0, offset: -160.0 / 9.0}, // degree_F
		types.Metric:   {scale: 1},                               // degree_C
		types.MetricWX: {scale: 1},                               // degree_C
	}
	groupPressure = group{
		types.US:       {scale: 33.86389}, // inHg
		types.Metric:   {scale: 1},        // mbar
		types.MetricWX: {scale: 1},        // mbar
	}
	groupSpeed = group{
		types.US:       {scale: 0.44704},   // mile_per_hour
		types.Metric:   {scale: 1.0 / 3.6}, // km_per_hour
		types.MetricWX: {scale: 1},         // meter_per_second
	}
	groupRain = group{
		types.US:       {scale: 25.4}, // inch
		types.Metric:   {scale: 10},   // cm
		types.MetricWX: {scale: 1},    // mm
	}
	groupRainRate = group{
		types.US:       {scale: 25.4}, // inch_per_hour
		types.Metric:   {scale: 10},   // cm_per_hour
		types.MetricWX: {scale: 1},    // mm_per_hour
	}
)

// observationGroups lists the observations that change value with the unit
// system. Everything else (humidity, direction, radiation, ...) is
// system-independent.
var observationGroups = map[string]group{
	"outTemp":    groupTemperature,
	"inTemp":     groupTemperature,
	"dewpoint":   groupTemperature,
	"windchill":  groupTemperature,
	"heatindex":  groupTemperature,
	"appTemp":    groupTemperature,
	"extraTemp1": groupTemperature,
	"extraTemp2": groupTemperature,
	"extraTemp3": groupTemperature,
	"barometer":  groupPressure,
	"pressure":   groupPressure,
	"altimeter":  groupPressure,
	"windSpeed":  groupSpeed,
	"windGust":   groupSpeed,
	"rain":       groupRain,
	"hourRain":   groupRain,
	"dayRain":    groupRain,
	"rain24":     groupRain,
	"rainRate":   groupRainRate,
}

// Standard is the default Converter.
type Standard struct{}

// Convert returns a copy of r with every known observation expressed in
// target units. Converting to the reading's own system still returns a copy.
func (Standard) Convert(r types.Reading, target types.UnitSystem) (types.Reading, error) {
	if !supported(r.USUnits) {
		return types.Reading{}, fmt.Errorf("units: source %s: %w", r.USUnits, ErrUnsupportedUnits)
	}
	if !supported(target) {
		return types.Reading{}, fmt.Errorf("units: target %s: %w", target, ErrUnsupportedUnits)
	}

	out := r.Clone()
	out.USUnits = target
	if r.USUnits == target {
		return out, nil
	}

	for name, raw := range r.Fields {
		g, known := observationGroups[name]
		if !known {
			continue
		}
		v, ok := types.ToFloat(raw)
		if !ok {
			continue
		}
		out.Fields[name] = g[target].fromBase(g[r.USUnits].toBase(v))
	}
	return out, nil
}

// ToMetricWX is shorthand for converting r to METRICWX with c.
func ToMetricWX(c Converter, r types.Reading) (types.Reading, error) {
	return c.Convert(r, types.MetricWX)
}

func supported(u types.UnitSystem) bool {
	switch u {
	case types.US, types.Metric, types.MetricWX:
		return true
	}
	return false
}
