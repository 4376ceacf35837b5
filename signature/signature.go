// Package signature parses and matches byte patterns with wildcards,
// e.g. "F8 01 74 04 83 65 ?? ??".
package signature

import (
	"fmt"
	"strconv"
	"strings"

	"procmem/process"
)

// Signature is a parsed byte pattern. A zero mask byte marks a wildcard position.
type Signature struct {
	Text    string
	Pattern []byte
	Mask    []byte
}

// Parse parses whitespace separated tokens, each either "??" or exactly two hex digits
func Parse(text string) (Signature, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return Signature{}, &process.SignatureError{Signature: text, Err: process.ErrInvalidSignature}
	}

	sig := Signature{
		Text:    text,
		Pattern: make([]byte, len(tokens)),
		Mask:    make([]byte, len(tokens)),
	}

	for i, tok := range tokens {
		if tok == "??" {
			continue
		}

		if len(tok) != 2 {
			return Signature{}, invalidToken(text, i, tok)
		}

		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return Signature{}, invalidToken(text, i, tok)
		}

		sig.Pattern[i] = byte(v)
		sig.Mask[i] = 0xff
	}

	return sig, nil
}

func invalidToken(text string, i int, tok string) error {
	return &process.SignatureError{
		Signature: text,
		Err:       fmt.Errorf("%w: token %d %q", process.ErrInvalidSignature, i, tok),
	}
}

func (s Signature) Len() int {
	return len(s.Pattern)
}

func (s Signature) String() string {
	return s.Text
}

// matchAt checks the window at data[off:]. A pattern byte of 0x00 matches anything,
// the same as an explicit wildcard.
func (s Signature) matchAt(data []byte, off int) bool {
	for j, want := range s.Pattern {
		if s.Mask[j] == 0 || want == 0 {
			continue
		}
		if data[off+j]&s.Mask[j] != want&s.Mask[j] {
			return false
		}
	}
	return true
}

// Index returns the lowest offset in data where the signature matches, or -1
func (s Signature) Index(data []byte) int {
	if len(s.Pattern) == 0 {
		return -1
	}
	for i := 0; i+len(s.Pattern) <= len(data); i++ {
		if s.matchAt(data, i) {
			return i
		}
	}
	return -1
}

// IndexAll returns every matching offset in data in ascending order
func (s Signature) IndexAll(data []byte) []int {
	if len(s.Pattern) == 0 {
		return nil
	}

	var matches []int
	for i := 0; i+len(s.Pattern) <= len(data); i++ {
		if s.matchAt(data, i) {
			matches = append(matches, i)
		}
	}
	return matches
}
