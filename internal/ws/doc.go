// Package ws carries the bridge message channel over WebSocket so a Host
// and its Guest can live in different processes.
//
// A Remote is a window.Endpoint for the context at the other end of a
// connection. Frames carry only a target origin and the message data; the
// sender's origin comes from the connection itself: the Origin header the
// server admitted, or the URL the client dialed.
//
// Frame (text message):
//
//	{"target_origin": "http://localhost:8000", "data": {"name": "ping", "args": {}}}
//
// Example Usage:
//
//	handler := ws.NewHandler(hostWindow, document, routes, ws.DefaultOptions())
//	router.GET("/bridge", handler.HandleConnection)
//
//	remote, err := ws.Dial(ctx, "ws://localhost:8000/bridge?frame=app", "http://localhost:3000", ws.DefaultOptions())
//	guestWindow := window.New(loop, "http://localhost:3000", remote)
//	go remote.Pump(ctx, guestWindow, guestWindow.Origin())
package ws
