// Package metrics provides observability hooks for compositions, full builds
// and incremental updates.
//
// Components hold a Recorder and default to NoopRecorder, so metrics stay
// optional and no call site needs a nil check. The watch command swaps in a
// PrometheusRecorder and serves it with HTTPHandler:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	engine := compose.New(s, compose.WithRecorder(rec))
//	http.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
