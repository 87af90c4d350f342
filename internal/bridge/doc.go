/*
Package bridge connects an outer Host and an embedded Guest over the
origin-gated message channel of package window.

Each peer owns a closed effect registry. Inbound messages pass the signal
gate (exact origin first, then envelope shape) and are dispatched on the
window's delivery turn. Every handler receives a callback that sends a signal
to the opposite peer, so effect chains can cross the boundary in both
directions.

Lifecycle:

	Host:  Configured -> Listening -> Destroyed   (Init, Destroy)
	Guest: Listening -> Destroyed                  (listens at construction)

Start policy and unknown-effect policy are configured per peer through
Options. Listening state is per instance, so any number of peers can share a
window.
*/
package bridge
