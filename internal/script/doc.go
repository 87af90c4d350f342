/*
Package script runs effect handlers authored in JavaScript.

A Runtime is an isolated goja VM with no module loader, no process object and
inert timers. Effects evaluates a script that defines a global effects object
and returns one effect.Handler per member:

	var effects = {
	  ping: function (ctx) {
	    ctx.invokeCounterpart({ name: "pong", args: { n: ctx.args.n + 1 } });
	  },
	};

Every VM call runs under the configured timeout. A handler that throws is
logged and counted; the calling peer keeps listening.
*/
package script
