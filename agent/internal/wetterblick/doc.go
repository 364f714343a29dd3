// Package wetterblick implements the wetterblick.com station upload protocol.
//
// BuildParams turns one Reading into the ordered query parameters the
// endpoint expects (values converted to METRICWX, fixed decimal precision,
// empty strings for missing data). Classify maps a response body to an
// Outcome; the server reports errors inside a 200 body, so classification
// inspects content rather than status codes. RedactURL masks the station
// password before a URL is logged.
package wetterblick
