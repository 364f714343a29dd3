// Package security inspects the upload destination before the worker starts:
// the TLS certificate of the endpoint and configuration choices that expose
// the station password.
package security
