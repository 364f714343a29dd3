// Package units converts Readings between the supported unit systems
// (US, METRIC, METRICWX).
//
// The Converter interface is the capability the uploader depends on; Standard
// is the table-driven implementation. Observations are grouped (temperature,
// pressure, speed, rain, rain rate) and each group maps every unit system to
// a linear transform into a common base unit. Observations outside the
// table, nil values and non-numeric values are copied through unchanged.
package units
