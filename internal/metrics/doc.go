// Package metrics provides the observability hooks for pipeline runs and the
// live-reload hub.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics cost nothing unless enabled:
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	p := pipeline.New("build:sass", fs, src, sink, steps...).WithRecorder(recorder)
//
// The dev server exposes the registry at /metrics when metrics are enabled.
package metrics
