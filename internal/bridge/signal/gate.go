package signal

// Verdict is the outcome of passing a message through a Gate.
type Verdict int

const (
	Accepted Verdict = iota
	UntrustedOrigin
	Malformed
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case UntrustedOrigin:
		return "untrusted_origin"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Gate admits messages from exactly one trusted origin.
type Gate struct {
	trusted string
}

// NewGate creates a gate trusting the given serialized origin.
func NewGate(trustedOrigin string) Gate {
	return Gate{trusted: trustedOrigin}
}

// Origin returns the trusted origin.
func (g Gate) Origin() string {
	return g.trusted
}

// TrustedOrigin reports whether origin is byte-for-byte the trusted origin.
func (g Gate) TrustedOrigin(origin string) bool {
	return g.trusted != "" && origin == g.trusted
}

// WellFormed reports whether payload is a valid Signal, returning it if so.
func (g Gate) WellFormed(payload []byte) (Signal, bool) {
	sig, err := Parse(payload)
	if err != nil {
		return Signal{}, false
	}
	return sig, true
}

// Admit runs the origin check and then the shape check. The payload of a
// message from an untrusted origin is never parsed.
func (g Gate) Admit(origin string, payload []byte) (Signal, Verdict) {
	if !g.TrustedOrigin(origin) {
		return Signal{}, UntrustedOrigin
	}
	sig, ok := g.WellFormed(payload)
	if !ok {
		return Signal{}, Malformed
	}
	return sig, Accepted
}
