package wetterblick

import (
	"strings"
	"testing"
	"time"

	"github.com/wetterblick/uploader/agent/internal/units"
)

func TestRedactURL_MasksPwParam(t *testing.T) {
	in := "https://example.com/sd?user=u&pw=hunter2&date=01.01.2026"
	got := RedactURL(in, "hunter2")
	want := "https://example.com/sd?user=u&pw=XXX&date=01.01.2026"
	if got != want {
		t.Errorf("RedactURL() = %q, want %q", got, want)
	}
}

func TestRedactURL_NeverContainsPassword(t *testing.T) {
	passwords := []string{
		"hunter2", "X", "XX", "XXX", "s", "https", "user", "a b&c", "pw=",
		"01.01", "X*#~-_.", "=", "&", "sd",
	}
	for _, pw := range passwords {
		creds := Credentials{Username: pw, Password: pw}
		p, err := BuildParams(fullUSReading(), creds, units.Standard{}, time.UTC)
		if err != nil {
			t.Fatal(err)
		}
		got := RedactURL(p.URL(DefaultServerURL), pw)
		if strings.Contains(got, pw) {
			t.Errorf("RedactURL leaked password %q: %s", pw, got)
		}
	}
}

func TestRedactURL_EmptyPassword(t *testing.T) {
	got := RedactURL("https://example.com/sd?user=u&pw=", "")
	if got != "https://example.com/sd?user=u&pw=XXX" {
		t.Errorf("RedactURL() = %q", got)
	}
}
