// Package metrics records submission pipeline and starter pack clone metrics.
//
// Components receive a Recorder and default to NoopRecorder, so metrics stay
// optional without nil checks at call sites:
//
//	p := submission.New(client, submission.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// tcide is a short-lived CLI, so there is no scrape endpoint. When a
// textfile path is configured the registry is written in the node exporter
// textfile format after a command finishes (see WriteTextfile).
package metrics
