// Package window models the ambient message channel that bridge peers share.
//
// A Window is one execution context with a serialized origin, an optional
// parent (the context that embeds it), and a set of message listeners. All
// listener calls for windows sharing a Loop happen one at a time, in the
// order messages were delivered, which gives peers the single-threaded,
// event-driven model they are written against.
//
// Delivery is addressed: the sender names the origin it expects the
// recipient to have, and an Endpoint refuses delivery when the two differ.
// The recipient sees the sender's origin on every Message and decides for
// itself whether to trust it.
package window
