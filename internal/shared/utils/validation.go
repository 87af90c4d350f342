package utils

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Payload size limits (in bytes)
const (
	MaxSignalSize = 1 * 1024 * 1024 // 1MB - maximum encoded signal
	MaxFrameSize  = MaxSignalSize + 4*1024
)

// String length limits
const (
	MaxIDLength     = 128
	MaxEffectLength = 256
	MaxClassLength  = 64
)

// SafeIDPattern allows alphanumeric, hyphens, underscores
var SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var (
	ErrEmptyURL       = errors.New("url is empty")
	ErrNotAbsolute    = errors.New("url is not absolute")
	ErrUnsupportedURL = errors.New("url scheme must be http or https")
)

// ValidateURL checks that raw is an absolute http or https URL.
func ValidateURL(raw string) error {
	_, err := parseHTTPURL(raw)
	return err
}

// Origin returns the serialized origin (scheme://host[:port]) of an http(s)
// URL. Scheme and host are lower-cased and default ports are dropped, so the
// result can be compared byte-for-byte with a message origin.
func Origin(raw string) (string, error) {
	u, err := parseHTTPURL(raw)
	if err != nil {
		return "", err
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		// bare IPv6 literal
		host = "[" + host + "]"
	}
	return scheme + "://" + host, nil
}

func parseHTTPURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotAbsolute, raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, raw)
	}
}

// ValidateID validates an element or frame ID
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("ID too long: %d characters (max %d)", len(id), MaxIDLength)
	}
	if !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("ID contains invalid characters (only alphanumeric, hyphens, underscores allowed)")
	}
	return nil
}

// ValidateEffectName validates an effect name. Names are free-form but must be
// non-empty UTF-8 of bounded length.
func ValidateEffectName(name string) error {
	if name == "" {
		return fmt.Errorf("effect name cannot be empty")
	}
	if len(name) > MaxEffectLength {
		return fmt.Errorf("effect name too long: %d bytes (max %d)", len(name), MaxEffectLength)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("effect name is not valid UTF-8")
	}
	return nil
}

// ValidateClasses validates presentational class names for a frame
func ValidateClasses(classes []string) error {
	for i, cls := range classes {
		if strings.TrimSpace(cls) == "" {
			return fmt.Errorf("class %d is empty", i)
		}
		if len(cls) > MaxClassLength {
			return fmt.Errorf("class %q too long (max %d)", cls, MaxClassLength)
		}
		if strings.ContainsAny(cls, " \t\n") {
			return fmt.Errorf("class %q contains whitespace", cls)
		}
	}
	return nil
}

// ValidateSize checks if the data size is within limits
func ValidateSize(data []byte, maxSize int) error {
	if len(data) > maxSize {
		return fmt.Errorf("payload size %d bytes exceeds maximum %d bytes", len(data), maxSize)
	}
	return nil
}
