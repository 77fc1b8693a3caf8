// Package metrics provides build observability for texbuilder.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection needs no nil checks at call sites:
//
//	exec := toolexec.NewExecutor(runner, rep).WithRecorder(metrics.NoopRecorder{})
//
// When metrics.textfile_path is configured the CLI swaps in a PrometheusRecorder
// backed by its own registry and writes the registry to that file after each pass,
// in the node_exporter textfile collector format.
package metrics
