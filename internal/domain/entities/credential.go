package entities

import (
	"fmt"
	"strings"
)

const redacted = "[REDACTED]"

// Credential is a user-held secret for the embedding and generation services.
// Every formatting path prints a placeholder; only Reveal exposes the value.
type Credential struct {
	secret string
}

// NewCredential wraps a raw secret, trimming surrounding whitespace.
func NewCredential(raw string) Credential {
	return Credential{secret: strings.TrimSpace(raw)}
}

// Empty reports whether no secret was supplied.
func (c Credential) Empty() bool { return c.secret == "" }

// Reveal returns the raw secret. Call it only at the transport boundary.
func (c Credential) Reveal() string { return c.secret }

func (c Credential) String() string   { return c.placeholder() }
func (c Credential) GoString() string { return c.placeholder() }

// Format covers %v, %+v, %#v, %s, %q and friends.
func (c Credential) Format(f fmt.State, verb rune) {
	if verb == 'q' {
		fmt.Fprintf(f, "%q", c.placeholder())
		return
	}
	fmt.Fprint(f, c.placeholder())
}

func (c Credential) MarshalText() ([]byte, error) { return []byte(c.placeholder()), nil }

func (c Credential) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.placeholder() + `"`), nil
}

func (c Credential) placeholder() string {
	if c.Empty() {
		return ""
	}
	return redacted
}
