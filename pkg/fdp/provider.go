/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: provider.go
Description: Fuzzed data provider. Splits a fuzz input into typed fields read from the
front of the buffer: fixed-width integers, escape-terminated strings and the remainder.
*/

package fdp

import "encoding/binary"

// Provider consumes fields from the front of a byte slice. It never copies
// the underlying input except where a method says so.
type Provider struct {
	data []byte
}

// New creates a provider over data.
func New(data []byte) *Provider {
	return &Provider{data: data}
}

// Remaining returns the number of unconsumed bytes.
func (p *Provider) Remaining() int { return len(p.data) }

// ConsumeInt32 reads a little-endian 32-bit integer. If fewer than four bytes
// remain they are consumed and 0 is returned.
func (p *Provider) ConsumeInt32() int32 {
	if len(p.data) < 4 {
		p.data = p.data[len(p.data):]
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(p.data[:4]))
	p.data = p.data[4:]
	return v
}

// ConsumeRandomLengthString reads at most maxLen characters. A backslash
// followed by another backslash yields one backslash; a backslash followed by
// any other byte ends the string and both bytes are consumed.
func (p *Provider) ConsumeRandomLengthString(maxLen int) string {
	out := make([]byte, 0, min(maxLen, len(p.data)))
	for i := 0; i < maxLen && len(p.data) > 0; i++ {
		next := p.data[0]
		p.data = p.data[1:]
		if next == '\\' && len(p.data) > 0 {
			next = p.data[0]
			p.data = p.data[1:]
			if next != '\\' {
				break
			}
		}
		out = append(out, next)
	}
	return string(out)
}

// ConsumeRemainingBytes returns a copy of everything left.
func (p *Provider) ConsumeRemainingBytes() []byte {
	out := make([]byte, len(p.data))
	copy(out, p.data)
	p.data = p.data[len(p.data):]
	return out
}
