// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships
// the matching client used by the CLI.
//
// Errors produced by the matching core cross the socket as a message plus a
// kind string; the client turns them back into errors that satisfy errors.Is
// against the fingerprint markers.
package ipc
