// ABOUTME: Reconnecting WebSocket transport package
// ABOUTME: Explicit connection state machine with linear backoff and observers
// Package transport owns the live connection to a session server.
//
// The Client moves through Connecting, Open, Closing, Closed, Reconnecting
// and Offline. Unexpected closures retry with a linear backoff
// (BaseDelay x attempt) until MaxAttempts is exhausted, after which the
// client stays Offline until Connect or Reconnect is called again.
// Disconnect never triggers a retry.
//
// Example:
//
//	c := transport.NewClient(transport.Config{URL: "ws://localhost:8000", SessionID: id})
//	c.OnMessage(func(env protocol.Envelope) { ... })
//	c.OnStateChange(func(s transport.State) { ... })
//	c.Connect(ctx)
//	err := c.Send(protocol.TypeAddNote, protocol.AddNote{Text: "memo"})
package transport
