/*
Package surface keeps track of the frames a host context embeds.

A Document is a small element tree: div containers, each holding iframe
elements. Every iframe owns a content window, the window.Endpoint that host
peers address when they send signals to the guest inside it. Frames are
either embedded, with the document's Opener creating the content window, or
attached, when a transport has already produced the endpoint.

Embed follows resolve-or-create semantics: the container must exist and be a
div, an element already using the frame id must be an iframe (and is then
returned unchanged), the src must be an http or https URL, and classes must
be non-empty single tokens.

The package does no rendering; it only answers "where does frame X live and
how do I reach it".
*/
package surface
