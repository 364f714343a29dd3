// Package metrics counts what the upload worker does and renders the counters
// in the Prometheus text exposition format.
//
// Stats implements uploader.Recorder. Families builds client_model metric
// families from the current counter values; Handler serves them on /metrics
// via expfmt so an existing Prometheus can scrape the uploader.
package metrics
