package telnet

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultCharset is used when no charset is configured.
const DefaultCharset = "UTF-8"

// Charset converts between the bytes on the wire and Go strings.
// Decoding never fails: malformed input becomes U+FFFD.  Encoding
// replaces anything the charset cannot represent.
//
// Only ASCII-compatible charsets make sense here, since line framing
// happens on raw CR/LF bytes before decoding.
type Charset struct {
	name string
	enc  encoding.Encoding
}

// NewCharset looks up an IANA charset name such as "UTF-8", "CP437" or
// "ISO-8859-1".  An empty name selects UTF-8.
func NewCharset(name string) (*Charset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return &Charset{name: DefaultCharset, enc: unicode.UTF8}, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("charset %q: not supported", name)
	}
	canonical, err := ianaindex.IANA.Name(enc)
	if err != nil {
		canonical = name
	}
	return &Charset{name: canonical, enc: enc}, nil
}

// UTF8 returns the default charset.
func UTF8() *Charset {
	return &Charset{name: DefaultCharset, enc: unicode.UTF8}
}

// Name returns the canonical charset name.
func (c *Charset) Name() string { return c.name }

// Decode converts wire bytes to a string.
func (c *Charset) Decode(p []byte) string {
	out, err := c.enc.NewDecoder().Bytes(p)
	if err != nil {
		return strings.ToValidUTF8(string(p), "\uFFFD")
	}
	return string(out)
}

// Encode converts s to wire bytes.  Ill-formed UTF-8 in s and runes the
// charset lacks are replaced rather than rejected.
func (c *Charset) Encode(s string) []byte {
	s = strings.ToValidUTF8(s, "\uFFFD")
	out, err := encoding.ReplaceUnsupported(c.enc.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}
