// Package entities contains core business entities.
// Pure domain objects: no knowledge of transports, storage or vendors.
package entities

import (
	"fmt"
	"strings"
)

// Length is the requested size of a poem.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// Lengths lists every accepted length in display order.
var Lengths = []Length{LengthShort, LengthMedium, LengthLong}

// Style is the requested poetic form.
type Style string

const (
	StyleFreeVerse Style = "free_verse"
	StyleSonnet    Style = "sonnet"
	StyleHaiku     Style = "haiku"
	StyleLimerick  Style = "limerick"
)

// Styles lists every accepted style in display order.
var Styles = []Style{StyleFreeVerse, StyleSonnet, StyleHaiku, StyleLimerick}

// PoemRequest is one user submission. Treat it as immutable once built.
type PoemRequest struct {
	Theme      string
	Length     Length
	Style      Style
	Credential Credential
}

// NewPoemRequest trims and parses raw form values into a request.
// It does not validate; call Validate before submitting.
func NewPoemRequest(theme, length, style string, credential Credential) PoemRequest {
	l, _ := ParseLength(length)
	s, _ := ParseStyle(style)
	return PoemRequest{
		Theme:      strings.TrimSpace(theme),
		Length:     l,
		Style:      s,
		Credential: credential,
	}
}

// Validate reports whether the request can start a run.
// Every failure wraps ErrInvalidInput.
func (r PoemRequest) Validate() error {
	if strings.TrimSpace(r.Theme) == "" {
		return fmt.Errorf("%w: theme is required", ErrInvalidInput)
	}
	if !r.Length.Valid() {
		return fmt.Errorf("%w: unknown length %q", ErrInvalidInput, string(r.Length))
	}
	if !r.Style.Valid() {
		return fmt.Errorf("%w: unknown style %q", ErrInvalidInput, string(r.Style))
	}
	if r.Credential.Empty() {
		return fmt.Errorf("%w: credential is required", ErrInvalidInput)
	}
	return nil
}

// PoemFragment is a sample poem returned by a PoemSource.
type PoemFragment struct {
	Title  string
	Author string
	Lines  []string
}

// Text joins the fragment lines, which is what gets embedded and quoted.
func (f PoemFragment) Text() string {
	return strings.Join(f.Lines, "\n")
}

// Vector is an embedding. Its length is fixed by the model that produced it.
type Vector []float32

// Dimensions returns the vector length.
func (v Vector) Dimensions() int { return len(v) }

// IndexEntry is one (text, vector) pair held by a SimilarityIndex.
type IndexEntry struct {
	Text   string
	Vector Vector
}

// Neighbor is one similarity query result. Smaller distance is nearer.
type Neighbor struct {
	Text     string
	Distance float64
}

// GeneratedPoem is the terminal artifact of a successful run.
type GeneratedPoem struct {
	Text          string
	SourceRequest PoemRequest
}
