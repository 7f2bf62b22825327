// Package cli provides the interactive dataset uploader.
//
// NewApp wires configuration, the upload journal, the HTTP upload client
// and the coordinator; App.Run starts the REPL next to a terminal progress
// line and blocks until the user exits. Outcomes of uploads are printed as
// they arrive on the event bus.
//
// Commands:
//   - upload <dataset-id> <title> <file>...
//   - tasks, cancel <dataset-id>, wait
//   - history [n]
//   - exit | quit
package cli
