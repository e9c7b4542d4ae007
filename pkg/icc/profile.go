/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: profile.go
Description: ICC profile container reader. Validates the 128-byte header and the tag
directory of an in-memory profile and exposes the colour space information the transform
engine needs. Tag payloads are kept as raw bytes.
*/

package icc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kleascm/fixreverter-harness/pkg/gate"
)

const (
	headerSize   = 128
	tagEntrySize = 12
	// maxTags mirrors the tag directory cap of common colour engines.
	maxTags = 100
)

// Probe sites guarding the container checks. Ids share the colour engine's
// slot space with pkg/cms.
const (
	ProbeTruncated    = 0
	ProbeMagic        = 1
	ProbeTagCount     = 2
	ProbeTagDirectory = 3
	ProbeTagBounds    = 4
	ProbeDeclaredSize = 5
)

// Sites lists the probe sites of Open.
var Sites = gate.Sites{
	ProbeTruncated:    gate.CondAbort,
	ProbeMagic:        gate.CondAbort,
	ProbeTagCount:     gate.CondAbort,
	ProbeTagDirectory: gate.CondAbort,
	ProbeTagBounds:    gate.CondExec,
	ProbeDeclaredSize: gate.CondAbort,
}

var (
	ErrTruncated   = errors.New("icc: profile shorter than header and tag count")
	ErrSize        = errors.New("icc: declared size does not match buffer")
	ErrBadMagic    = errors.New("icc: missing acsp signature")
	ErrTooManyTags = errors.New("icc: tag count exceeds limit")
	ErrClosed      = errors.New("icc: profile already closed")
)

// Signature is a four-byte ICC tag or type signature.
type Signature uint32

// Sig builds a signature from a four character string.
func Sig(s string) Signature {
	var b [4]byte
	copy(b[:], s)
	return Signature(binary.BigEndian.Uint32(b[:]))
}

// String renders the signature as its four characters.
func (s Signature) String() string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(s))
	return string(b[:])
}

// ColorSpace is a data or connection colour space signature.
type ColorSpace = Signature

// DeviceClass is a profile class signature.
type DeviceClass = Signature

var (
	SpaceXYZ   = Sig("XYZ ")
	SpaceLab   = Sig("Lab ")
	SpaceLuv   = Sig("Luv ")
	SpaceYCbCr = Sig("YCbr")
	SpaceYxy   = Sig("Yxy ")
	SpaceRGB   = Sig("RGB ")
	SpaceGray  = Sig("GRAY")
	SpaceHSV   = Sig("HSV ")
	SpaceHLS   = Sig("HLS ")
	SpaceCMYK  = Sig("CMYK")
	SpaceCMY   = Sig("CMY ")

	ClassInput      = Sig("scnr")
	ClassDisplay    = Sig("mntr")
	ClassOutput     = Sig("prtr")
	ClassLink       = Sig("link")
	ClassColorSpace = Sig("spac")
	ClassAbstract   = Sig("abst")
	ClassNamedColor = Sig("nmcl")

	magic = Sig("acsp")
)

// ChannelsOf returns the number of channels in a colour space. Unknown
// spaces report 3.
func ChannelsOf(cs ColorSpace) int {
	switch cs {
	case SpaceGray:
		return 1
	case SpaceXYZ, SpaceLab, SpaceLuv, SpaceYCbCr, SpaceYxy, SpaceRGB, SpaceHSV, SpaceHLS, SpaceCMY:
		return 3
	case SpaceCMYK:
		return 4
	}
	// MCHx and xCLR carry the channel count as a hex digit.
	s := cs.String()
	switch {
	case s[:3] == "MCH":
		if n, ok := hexDigit(s[3]); ok {
			return n
		}
	case s[1:] == "CLR":
		if n, ok := hexDigit(s[0]); ok {
			return n
		}
	}
	return 3
}

func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '1' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

// Version is the profile format version.
type Version struct {
	Major, Minor, Bugfix uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Bugfix)
}

// Header holds the decoded profile header fields.
type Header struct {
	Size       uint32
	CMM        Signature
	Version    Version
	Class      DeviceClass
	ColorSpace ColorSpace
	PCS        ColorSpace
	Platform   Signature
	Intent     uint32
}

// Tag is one tag directory entry with its payload.
type Tag struct {
	Sig  Signature
	Data []byte
}

// Profile is an opened ICC profile.
type Profile struct {
	Header Header
	Tags   []Tag
	closed bool
	probes *gate.Table
}

// Open parses an in-memory profile. Tags whose payload falls outside the
// declared profile size are skipped. probes is kept with the profile and
// handed on to transforms built from it; nil disables every site.
func Open(data []byte, probes *gate.Table) (*Profile, error) {
	if probes.Guard(ProbeTruncated, len(data) < headerSize+4) {
		return nil, ErrTruncated
	}
	be := binary.BigEndian
	if probes.Guard(ProbeMagic, Signature(be.Uint32(data[36:40])) != magic) {
		return nil, ErrBadMagic
	}

	h := Header{
		Size:       be.Uint32(data[0:4]),
		CMM:        Signature(be.Uint32(data[4:8])),
		Version:    Version{Major: data[8], Minor: data[9] >> 4, Bugfix: data[9] & 0x0f},
		Class:      Signature(be.Uint32(data[12:16])),
		ColorSpace: Signature(be.Uint32(data[16:20])),
		PCS:        Signature(be.Uint32(data[20:24])),
		Platform:   Signature(be.Uint32(data[40:44])),
		Intent:     be.Uint32(data[64:68]),
	}

	count := be.Uint32(data[headerSize : headerSize+4])
	if probes.Guard(ProbeTagCount, count > maxTags) {
		return nil, fmt.Errorf("%w: %d", ErrTooManyTags, count)
	}
	dirEnd := uint64(headerSize+4) + uint64(count)*tagEntrySize
	if probes.Guard(ProbeTagDirectory, dirEnd > uint64(len(data))) {
		return nil, fmt.Errorf("%w: tag directory", ErrTruncated)
	}
	limit := uint64(h.Size)
	if probes.Guard(ProbeDeclaredSize, limit < headerSize+4 || limit > uint64(len(data))) {
		return nil, fmt.Errorf("%w: %d bytes declared, %d given", ErrSize, h.Size, len(data))
	}

	p := &Profile{Header: h, probes: probes}
	for i := uint64(0); i < uint64(count); i++ {
		entry := data[headerSize+4+i*tagEntrySize:]
		sig := Signature(be.Uint32(entry[0:4]))
		off := uint64(be.Uint32(entry[4:8]))
		size := uint64(be.Uint32(entry[8:12]))
		if probes.Guard(ProbeTagBounds, off+size > limit) {
			continue
		}
		p.Tags = append(p.Tags, Tag{Sig: sig, Data: data[off : off+size]})
	}
	return p, nil
}

// Probes returns the probe table the profile was opened with.
func (p *Profile) Probes() *gate.Table { return p.probes }

// ColorSpace returns the data colour space.
func (p *Profile) ColorSpace() ColorSpace { return p.Header.ColorSpace }

// PCS returns the profile connection space.
func (p *Profile) PCS() ColorSpace { return p.Header.PCS }

// Class returns the device class.
func (p *Profile) Class() DeviceClass { return p.Header.Class }

// Tag returns the payload of the first tag with the given signature.
func (p *Profile) Tag(sig Signature) ([]byte, bool) {
	for _, t := range p.Tags {
		if t.Sig == sig {
			return t.Data, true
		}
	}
	return nil, false
}

// Closed reports whether Close has been called.
func (p *Profile) Closed() bool { return p.closed }

// Close releases the profile. Closing twice returns ErrClosed.
func (p *Profile) Close() error {
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	p.Tags = nil
	return nil
}

// Encode serializes the profile header and tags into a profile container.
func (p *Profile) Encode() []byte {
	be := binary.BigEndian
	dirEnd := headerSize + 4 + len(p.Tags)*tagEntrySize
	total := dirEnd
	for _, t := range p.Tags {
		total += (len(t.Data) + 3) &^ 3
	}

	out := make([]byte, total)
	h := p.Header
	be.PutUint32(out[0:4], uint32(total))
	be.PutUint32(out[4:8], uint32(h.CMM))
	out[8] = h.Version.Major
	out[9] = h.Version.Minor<<4 | h.Version.Bugfix&0x0f
	be.PutUint32(out[12:16], uint32(h.Class))
	be.PutUint32(out[16:20], uint32(h.ColorSpace))
	be.PutUint32(out[20:24], uint32(h.PCS))
	be.PutUint32(out[36:40], uint32(magic))
	be.PutUint32(out[40:44], uint32(h.Platform))
	be.PutUint32(out[64:68], h.Intent)
	be.PutUint32(out[headerSize:headerSize+4], uint32(len(p.Tags)))

	off := dirEnd
	for i, t := range p.Tags {
		entry := out[headerSize+4+i*tagEntrySize:]
		be.PutUint32(entry[0:4], uint32(t.Sig))
		be.PutUint32(entry[4:8], uint32(off))
		be.PutUint32(entry[8:12], uint32(len(t.Data)))
		copy(out[off:], t.Data)
		off += (len(t.Data) + 3) &^ 3
	}
	return out
}
