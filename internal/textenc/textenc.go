// Package textenc resolves the text encoding used for every repository file.
//
// The encoding is a process-wide setting. It defaults to UTF-8 the first time
// it is read and can be replaced with SetCurrent, usually once at session start.
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultName is the encoding used when none is configured.
const DefaultName = "utf-8"

// ErrUnknownEncoding is returned for encoding names that cannot be resolved.
var ErrUnknownEncoding = errors.New("unknown encoding")

var (
	bomUTF8              = []byte{0xef, 0xbb, 0xbf}
	bomUTF16BigEndian    = []byte{0xfe, 0xff}
	bomUTF16LittleEndian = []byte{0xff, 0xfe}
)

// Policy is a resolved text encoding.
type Policy struct {
	name string
	enc  encoding.Encoding
}

// Resolve looks up an encoding by its WHATWG or IANA name.
func Resolve(name string) (*Policy, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		trimmed = DefaultName
	}

	enc, err := htmlindex.Get(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = strings.ToLower(trimmed)
	}
	return &Policy{name: canonical, enc: enc}, nil
}

// MustResolve is like Resolve but panics on unknown names.
func MustResolve(name string) *Policy {
	p, err := Resolve(name)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the canonical encoding name, suitable for an XML declaration.
func (p *Policy) Name() string {
	return p.name
}

// Encode converts UTF-8 text to the policy's encoding.
func (p *Policy) Encode(text []byte) ([]byte, error) {
	if p.name == DefaultName {
		return text, nil
	}
	out, err := p.enc.NewEncoder().Bytes(text)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", p.name, err)
	}
	return out, nil
}

// Decode removes a byte order mark and converts data to UTF-8. A UTF-16 BOM
// takes precedence over the policy's encoding.
func (p *Policy) Decode(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, bomUTF8) {
		return data[len(bomUTF8):], nil
	}

	if bytes.HasPrefix(data, bomUTF16BigEndian) || bytes.HasPrefix(data, bomUTF16LittleEndian) {
		e := unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
		return e.NewDecoder().Bytes(data)
	}

	if p.name == DefaultName {
		return data, nil
	}
	out, err := p.enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", p.name, err)
	}
	return out, nil
}

var (
	mu      sync.RWMutex
	current *Policy
)

// Current returns the process-wide policy, initializing it to UTF-8 on first use.
func Current() *Policy {
	mu.RLock()
	p := current
	mu.RUnlock()
	if p != nil {
		return p
	}

	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		current = MustResolve(DefaultName)
	}
	return current
}

// SetCurrent overrides the process-wide policy. Passing nil resets it to the default.
func SetCurrent(p *Policy) {
	mu.Lock()
	defer mu.Unlock()
	current = p
}
