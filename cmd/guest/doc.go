// Package main is the entry point for a framebridge guest process.
//
// A guest connects to the host's /bridge endpoint as one manifest frame,
// builds its window with the connection as parent, and serves the effects
// defined by a JavaScript file:
//
//	var effects = {
//	  ping: function (ctx) {
//	    ctx.invokeCounterpart({ name: "pong", args: { n: ctx.args.n + 1 } });
//	  },
//	};
//
// When the connection drops the guest redials, pacing attempts through a
// circuit breaker, and starts a fresh Guest on the new connection.
//
// Usage:
//
//	./guest -host ws://localhost:8000/bridge -frame app -origin http://localhost:3000 -script guest.js
package main
