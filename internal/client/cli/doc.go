// Package cli provides the interactive clientkeeper terminal client.
//
// It wires configuration, the HTTP API client and a small REPL. Typical
// flow: prompt for credentials, start a background connectivity watcher,
// then run account commands (me, list, update, passwd, delete) until the
// user exits.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
