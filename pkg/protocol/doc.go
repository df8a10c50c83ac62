// ABOUTME: Session synchronization wire protocol package
// ABOUTME: Defines the JSON envelope, message vocabulary and snapshot reducer
// Package protocol implements the session synchronization protocol.
//
// Every frame is a JSON envelope {type, data} or, for error and info
// notices, {type, message}. Inbound events are folded into a Snapshot by
// Reduce; outbound commands are built with the New* helpers and are
// fire-and-forget: the server confirms a command only by broadcasting the
// resulting event.
//
// Example:
//
//	snap, err := protocol.Reduce(snap, env)
//	cmd, err := protocol.NewAddNote("follow up on pricing")
package protocol
