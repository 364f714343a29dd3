// Package source feeds readings into the work queue from a stream of JSON
// lines, one archive record per line:
//
//	{"dateTime": 1767225600, "usUnits": 1, "outTemp": 32.5, "outHumidity": 24}
//
// It is the producer side used by the service binary when the uploader runs
// as a sidecar to station software that writes its archive records to a pipe
// or file.
package source
