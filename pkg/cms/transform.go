/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: transform.go
Description: Colour transforms between two ICC profiles. A transform is built once from a
source and destination profile plus buffer formats, then converts pixels from the source
space through go-colorful into the destination layout.
*/

package cms

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/kleascm/fixreverter-harness/pkg/icc"
	"github.com/lucasb-eyer/go-colorful"
)

// Intent is the ICC rendering intent.
type Intent uint32

const (
	IntentPerceptual Intent = iota
	IntentRelativeColorimetric
	IntentSaturation
	IntentAbsoluteColorimetric
)

// Flags alter transform construction.
type Flags uint32

const (
	// FlagNoCache disables the single-pixel cache of 8-bit transforms.
	FlagNoCache Flags = 0x0040
)

// Probe sites of the transform engine, numbered after those of pkg/icc.
const (
	ProbeProfileClass = 10
	ProbeChannels     = 11
	ProbeBufferSize   = 12
)

// Sites lists the transform probe sites. Profile parsing adds icc.Sites.
var Sites = gate.Sites{
	ProbeProfileClass: gate.CondAbort,
	ProbeChannels:     gate.CondAbort,
	ProbeBufferSize:   gate.CondAbort,
}

var (
	ErrNilProfile       = errors.New("cms: nil profile")
	ErrProfileClosed    = errors.New("cms: profile is closed")
	ErrUnsupportedClass = errors.New("cms: unsupported profile class")
	ErrUnsupportedSpace = errors.New("cms: unsupported colour space")
	ErrFormatMismatch   = errors.New("cms: format does not match profile")
	ErrBadIntent        = errors.New("cms: unknown rendering intent")
	ErrBufferSize       = errors.New("cms: buffer too small")
	ErrWrongInput       = errors.New("cms: input sample type does not match format")
	ErrDeleted          = errors.New("cms: transform already deleted")
)

// Transform converts pixels between two formats.
type Transform struct {
	in, out Format
	dec     decoder
	enc     encoder
	intent  Intent
	flags   Flags

	// Absolute colorimetric scaling from source to destination white.
	scale [3]float64

	cacheIn  []byte
	cacheOut []byte
	cached   bool
	deleted  bool

	probes *gate.Table
}

// NewTransform builds a transform from src in layout in to dst in layout out.
// The profiles are only read during construction and may be closed
// afterwards. The transform runs its probe sites against the source
// profile's table.
func NewTransform(src *icc.Profile, in Format, dst *icc.Profile, out Format, intent Intent, flags Flags) (*Transform, error) {
	var probes *gate.Table
	if src != nil {
		probes = src.Probes()
	}
	if err := checkProfile(src, probes); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if err := checkProfile(dst, probes); err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	if intent > IntentAbsoluteColorimetric {
		return nil, fmt.Errorf("%w: %d", ErrBadIntent, intent)
	}

	in, err := bindFormat(in, src.ColorSpace(), probes)
	if err != nil {
		return nil, fmt.Errorf("input format: %w", err)
	}
	out, err = bindFormat(out, dst.ColorSpace(), probes)
	if err != nil {
		return nil, fmt.Errorf("output format: %w", err)
	}

	dec, ok := decoders[in.Space]
	if !ok {
		return nil, fmt.Errorf("%w: input %s", ErrUnsupportedSpace, in.Space)
	}
	enc, ok := encoders[out.Space]
	if !ok || out.IsFloat() {
		return nil, fmt.Errorf("%w: output %s", ErrUnsupportedSpace, out)
	}

	t := &Transform{in: in, out: out, dec: dec, enc: enc, intent: intent, flags: flags, scale: [3]float64{1, 1, 1}, probes: probes}
	if intent == IntentAbsoluteColorimetric {
		sw, dw := src.MediaWhite(), dst.MediaWhite()
		for i := range t.scale {
			if sw[i] > 0 {
				t.scale[i] = dw[i] / sw[i]
			}
		}
	}
	return t, nil
}

func checkProfile(p *icc.Profile, probes *gate.Table) error {
	if p == nil {
		return ErrNilProfile
	}
	if p.Closed() {
		return ErrProfileClosed
	}
	class := p.Class()
	if probes.Guard(ProbeProfileClass, class == icc.ClassLink || class == icc.ClassNamedColor || class == icc.ClassAbstract) {
		return fmt.Errorf("%w: %s", ErrUnsupportedClass, class)
	}
	return nil
}

func bindFormat(f Format, space icc.ColorSpace, probes *gate.Table) (Format, error) {
	if f.Space == 0 {
		f.Space = space
	}
	if f.Space != space {
		return f, fmt.Errorf("%w: %s against %s", ErrFormatMismatch, f.Space, space)
	}
	if want := icc.ChannelsOf(space); probes.Guard(ProbeChannels, f.Channels != want) {
		return f, fmt.Errorf("%w: %d channels, %s has %d", ErrFormatMismatch, f.Channels, space, want)
	}
	if f.Bytes < 0 || f.Bytes > 2 {
		return f, fmt.Errorf("%w: %d byte samples", ErrFormatMismatch, f.Bytes)
	}
	return f, nil
}

// Input returns the bound input format.
func (t *Transform) Input() Format { return t.in }

// Output returns the bound output format.
func (t *Transform) Output() Format { return t.out }

// Do8 converts n pixels of integer samples. Two-byte samples are big endian.
func (t *Transform) Do8(in []byte, out []byte, n int) error {
	if t.deleted {
		return ErrDeleted
	}
	if t.in.IsFloat() {
		return fmt.Errorf("%w: format %s", ErrWrongInput, t.in)
	}
	inSize, outSize := t.in.PixelSize(), t.out.PixelSize()
	if t.probes.Guard(ProbeBufferSize, len(in) < n*inSize || len(out) < n*outSize) {
		return ErrBufferSize
	}

	full := 255.0
	if t.in.Bytes == 2 {
		full = 65535
	}
	v := make([]float64, t.in.Channels)
	for p := 0; p < n; p++ {
		src := in[p*inSize : (p+1)*inSize]
		dst := out[p*outSize : (p+1)*outSize]
		if t.cached && string(src) == string(t.cacheIn) {
			copy(dst, t.cacheOut)
			continue
		}
		for i := range v {
			if t.in.Bytes == 2 {
				v[i] = float64(binary.BigEndian.Uint16(src[2*i:])) / full
			} else {
				v[i] = float64(src[i]) / full
			}
		}
		t.unswap(v)
		if t.dec.fromInt != nil {
			t.dec.fromInt(v)
		}
		t.emit(t.dec.decode(v), dst)
		if t.flags&FlagNoCache == 0 {
			t.cacheIn = append(t.cacheIn[:0], src...)
			t.cacheOut = append(t.cacheOut[:0], dst...)
			t.cached = true
		}
	}
	return nil
}

// DoFloat converts n pixels of float64 samples.
func (t *Transform) DoFloat(in []float64, out []byte, n int) error {
	if t.deleted {
		return ErrDeleted
	}
	if !t.in.IsFloat() {
		return fmt.Errorf("%w: format %s", ErrWrongInput, t.in)
	}
	inSize, outSize := t.in.PixelSize(), t.out.PixelSize()
	if t.probes.Guard(ProbeBufferSize, len(in) < n*inSize || len(out) < n*outSize) {
		return ErrBufferSize
	}

	v := make([]float64, t.in.Channels)
	for p := 0; p < n; p++ {
		copy(v, in[p*inSize:(p+1)*inSize])
		t.unswap(v)
		if t.dec.toUnit != nil {
			t.dec.toUnit(v)
		}
		t.emit(t.dec.decode(v), out[p*outSize:(p+1)*outSize])
	}
	return nil
}

func (t *Transform) unswap(v []float64) {
	if !t.in.Swap {
		return
	}
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}

func (t *Transform) emit(c colorful.Color, dst []byte) {
	if t.intent == IntentAbsoluteColorimetric {
		x, y, z := c.Xyz()
		c = colorful.Xyz(x*t.scale[0], y*t.scale[1], z*t.scale[2])
	}

	v := make([]float64, t.out.Channels)
	t.enc(c, v)
	if t.out.Swap {
		for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
			v[i], v[j] = v[j], v[i]
		}
	}
	for i, s := range v {
		if t.out.Bytes == 2 {
			binary.BigEndian.PutUint16(dst[2*i:], uint16(quantize(s, 65535)))
		} else {
			dst[i] = uint8(quantize(s, 255))
		}
	}
}

// Delete releases the transform. Deleting twice returns ErrDeleted.
func (t *Transform) Delete() error {
	if t.deleted {
		return ErrDeleted
	}
	t.deleted = true
	t.cacheIn, t.cacheOut = nil, nil
	return nil
}
