package wetterblick

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors carried by non-success outcomes.
var (
	ErrBadLogin       = errors.New("bad login")
	ErrServerError    = errors.New("server error")
	ErrTransportError = errors.New("transport error")
)

// Kind classifies the result of one upload attempt.
type Kind int

const (
	Success Kind = iota
	BadLogin
	ServerError
	TransportError
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case BadLogin:
		return "bad_login"
	case ServerError:
		return "server_error"
	case TransportError:
		return "transport_error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Outcome is the tagged result of one send attempt. Text holds the raw
// response body for BadLogin and ServerError; Cause holds the underlying
// error for TransportError.
type Outcome struct {
	Kind  Kind
	Text  string
	Cause error
}

// Retryable reports whether another attempt may succeed.
func (o Outcome) Retryable() bool {
	return o.Kind == ServerError || o.Kind == TransportError
}

// Err returns nil for Success and an error wrapping the matching sentinel
// otherwise.
func (o Outcome) Err() error {
	switch o.Kind {
	case Success:
		return nil
	case BadLogin:
		return fmt.Errorf("%w: %s", ErrBadLogin, o.Text)
	case ServerError:
		return fmt.Errorf("%w: server returned '%s'", ErrServerError, o.Text)
	default:
		return fmt.Errorf("%w: %v", ErrTransportError, o.Cause)
	}
}

// badLoginCodes are the error codes the server uses for unknown station,
// wrong password and disabled station.
var badLoginCodes = []string{
	`"errorcode":"100"`,
	`"errorcode":"101"`,
	`"errorcode":"102"`,
}

const errorStatus = `"status":"error"`

// Classify maps a raw response body to an Outcome. Matching is
// case-insensitive; credential errors win over the generic error status.
func Classify(body string) Outcome {
	txt := strings.ToLower(body)
	for _, code := range badLoginCodes {
		if strings.Contains(txt, code) {
			return Outcome{Kind: BadLogin, Text: txt}
		}
	}
	if strings.Contains(txt, errorStatus) {
		return Outcome{Kind: ServerError, Text: txt}
	}
	return Outcome{Kind: Success, Text: txt}
}
