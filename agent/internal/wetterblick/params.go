package wetterblick

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/wetterblick/uploader/agent/internal/units"
	"github.com/wetterblick/uploader/pkg/types"
)

// Wire parameter names.
const (
	ParamUser         = "user"
	ParamPassword     = "pw"
	ParamDate         = "date"
	ParamTime         = "time"
	ParamWindDir      = "wind-dir"
	ParamSensorTime   = "sensor-time"
	ParamTendencyText = "air-pressure-tendency-text"
	ParamTendency3h   = "air-pressure-tendency-3h"
	dateLayout        = "02.01.2006"
	timeLayout        = "15:04:05"
)

// fieldMapping binds a wire parameter to a METRICWX observation and the
// printf verb used to render it.
type fieldMapping struct {
	param  string
	field  string
	format string
}

// dataMap is emitted in this order after date and time.
var dataMap = []fieldMapping{
	{"temp", "outTemp", "%.1f"},       // degree_C
	{"relhum", "outHumidity", "%.0f"}, // percent
	{"pressure", "barometer", "%.1f"}, // hPa
	{"wind", "windSpeed", "%.1f"},     // m/s
	{"gusts", "windGust", "%.1f"},     // m/s
	{"rain", "rainRate", "%.2f"},      // mm/h
	{"rain1h", "hourRain", "%.2f"},    // mm
	{"rainday", "dayRain", "%.2f"},    // mm
	{"dewpoint", "dewpoint", "%.1f"},  // degree_C
}

// Credentials identify the station to the server.
type Credentials struct {
	Username string
	Password string
}

// Param is one query parameter.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered set of query parameters.
type Params []Param

// Get returns the value for key and whether it was present.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Encode renders p as an application/x-www-form-urlencoded query string,
// keeping parameter order.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// URL appends the encoded parameters to serverURL.
func (p Params) URL(serverURL string) string {
	return serverURL + "?" + p.Encode()
}

// BuildParams converts r to METRICWX with conv and renders the upload
// parameters. date and time are formatted in loc; a nil loc means
// time.Local. r itself is never modified.
func BuildParams(r types.Reading, creds Credentials, conv units.Converter, loc *time.Location) (Params, error) {
	if loc == nil {
		loc = time.Local
	}
	record, err := units.ToMetricWX(conv, r)
	if err != nil {
		return nil, fmt.Errorf("wetterblick: convert reading: %w", err)
	}

	ts := record.Time().In(loc)
	p := make(Params, 0, 4+len(dataMap)+4)
	p = append(p,
		Param{ParamUser, creds.Username},
		Param{ParamPassword, creds.Password},
		Param{ParamDate, ts.Format(dateLayout)},
		Param{ParamTime, ts.Format(timeLayout)},
	)
	for _, m := range dataMap {
		p = append(p, Param{m.param, formatField(record, m)})
	}
	p = append(p,
		Param{ParamWindDir, DegToCompass(record.Fields["windDir"])},
		Param{ParamSensorTime, ""},
		Param{ParamTendencyText, ""},
		Param{ParamTendency3h, ""},
	)
	return p, nil
}

func formatField(r types.Reading, m fieldMapping) string {
	v, ok := r.Float(m.field)
	if !ok || math.IsInf(v, 0) {
		return ""
	}
	return fmt.Sprintf(m.format, v)
}
