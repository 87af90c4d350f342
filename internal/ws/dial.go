package ws

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/GriffinCanCode/framebridge/internal/shared/utils"
)

// Dial connects to a bridge endpoint as selfOrigin. The host's origin is
// derived from the URL: ws maps to http and wss to https.
func Dial(ctx context.Context, rawURL, selfOrigin string, opts Options) (*Remote, error) {
	remoteOrigin, err := originOf(rawURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Origin", selfOrigin)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("ws: dial %s: %w (status %d)", rawURL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("ws: dial %s: %w", rawURL, err)
	}
	return NewRemote(conn, remoteOrigin, opts), nil
}

func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("ws: invalid url %q: %w", rawURL, err)
	}

	var scheme string
	switch u.Scheme {
	case "ws":
		scheme = "http"
	case "wss":
		scheme = "https"
	default:
		return "", fmt.Errorf("ws: url scheme must be ws or wss: %q", rawURL)
	}
	return utils.Origin(scheme + "://" + u.Host)
}
