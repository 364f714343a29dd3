package wetterblick

import (
	"math"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/wetterblick/uploader/agent/internal/units"
	"github.com/wetterblick/uploader/pkg/types"
)

// 2026-01-01 11:50:45 UTC
const fixedTS = 1767268245

var testCreds = Credentials{Username: "station-7", Password: "s3cr3t&pw"}

func fullUSReading() types.Reading {
	return types.Reading{
		DateTime: fixedTS,
		USUnits:  types.US,
		Fields: map[string]any{
			"outTemp":     32.5,
			"outHumidity": 24.0,
			"barometer":   29.92,
			"windSpeed":   10.0,
			"windGust":    nil,
			"rainRate":    0.1,
			"dayRain":     1.0,
			"dewpoint":    50.0,
			"windDir":     200.0,
			"inTemp":      75.8,
		},
	}
}

func TestBuildParams_FullRecord(t *testing.T) {
	p, err := BuildParams(fullUSReading(), testCreds, units.Standard{}, time.UTC)
	if err != nil {
		t.Fatalf("BuildParams() error = %v", err)
	}

	want := map[string]string{
		"user":                       "station-7",
		"pw":                         "s3cr3t&pw",
		"date":                       "01.01.2026",
		"time":                       "11:50:45",
		"temp":                       "0.3",
		"relhum":                     "24",
		"pressure":                   "1013.2",
		"wind":                       "4.5",
		"gusts":                      "",
		"rain":                       "2.54",
		"rain1h":                     "",
		"rainday":                    "25.40",
		"dewpoint":                   "10.0",
		"wind-dir":                   "SSW",
		"sensor-time":                "",
		"air-pressure-tendency-text": "",
		"air-pressure-tendency-3h":   "",
	}
	if len(p) != len(want) {
		t.Errorf("len(params) = %d, want %d", len(p), len(want))
	}
	for k, v := range want {
		got, ok := p.Get(k)
		if !ok {
			t.Errorf("param %q missing", k)
			continue
		}
		if got != v {
			t.Errorf("param %q = %q, want %q", k, got, v)
		}
	}
}

func TestBuildParams_Order(t *testing.T) {
	p, err := BuildParams(fullUSReading(), testCreds, units.Standard{}, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	order := []string{
		"user", "pw", "date", "time", "temp", "relhum", "pressure", "wind", "gusts",
		"rain", "rain1h", "rainday", "dewpoint", "wind-dir", "sensor-time",
		"air-pressure-tendency-text", "air-pressure-tendency-3h",
	}
	for i, key := range order {
		if p[i].Key != key {
			t.Errorf("params[%d] = %q, want %q", i, p[i].Key, key)
		}
	}
}

func TestBuildParams_EmptyRecordHasEveryKey(t *testing.T) {
	r := types.Reading{DateTime: fixedTS, USUnits: types.MetricWX, Fields: map[string]any{}}
	p, err := BuildParams(r, testCreds, units.Standard{}, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	for _, kv := range p[4:] {
		if kv.Value != "" {
			t.Errorf("param %q = %q, want empty", kv.Key, kv.Value)
		}
	}
}

func TestBuildParams_NonFiniteIsEmpty(t *testing.T) {
	r := types.Reading{
		DateTime: fixedTS,
		USUnits:  types.MetricWX,
		Fields: map[string]any{
			"outTemp":     math.Inf(1),
			"outHumidity": math.Inf(-1),
			"barometer":   math.NaN(),
			"windSpeed":   3.0,
		},
	}
	p, err := BuildParams(r, testCreds, units.Standard{}, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	for key, want := range map[string]string{
		"temp":     "",
		"relhum":   "",
		"pressure": "",
		"wind":     "3.0",
	} {
		if got, ok := p.Get(key); !ok || got != want {
			t.Errorf("%s = (%q, %v), want %q", key, got, ok, want)
		}
	}
}

func TestBuildParams_Deterministic(t *testing.T) {
	r := fullUSReading()
	a, err := BuildParams(r, testCreds, units.Standard{}, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := BuildParams(r, testCreds, units.Standard{}, time.UTC)
	if a.Encode() != b.Encode() {
		t.Errorf("BuildParams not deterministic:\n%s\n%s", a.Encode(), b.Encode())
	}
	if r.Fields["outTemp"] != 32.5 || r.USUnits != types.US {
		t.Error("BuildParams mutated its input")
	}
}

func TestBuildParams_Timezone(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	p, err := BuildParams(fullUSReading(), testCreds, units.Standard{}, loc)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := p.Get("time"); got != "12:50:45" {
		t.Errorf("time = %q, want 12:50:45", got)
	}
}

func TestBuildParams_UnsupportedUnits(t *testing.T) {
	r := types.Reading{DateTime: fixedTS, USUnits: 3}
	if _, err := BuildParams(r, testCreds, units.Standard{}, time.UTC); err == nil {
		t.Fatal("expected error for unknown unit system")
	}
}

func TestParams_EncodeAndURL(t *testing.T) {
	p, err := BuildParams(fullUSReading(), testCreds, units.Standard{}, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	raw := p.URL(DefaultServerURL)
	if !strings.HasPrefix(raw, DefaultServerURL+"?user=station-7&pw=s3cr3t%26pw&") {
		t.Errorf("URL prefix = %q", raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	q := u.Query()
	if q.Get("pw") != "s3cr3t&pw" {
		t.Errorf("decoded pw = %q", q.Get("pw"))
	}
	if q.Get("date") != "01.01.2026" {
		t.Errorf("decoded date = %q", q.Get("date"))
	}
	if _, ok := q["air-pressure-tendency-3h"]; !ok {
		t.Error("empty parameter dropped from query")
	}
}
