/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: srgb.go
Description: Built-in sRGB reference profile used as the fixed destination of transforms.
*/

package icc

import (
	"encoding/binary"
	"math"
)

var (
	tagMediaWhite = Sig("wtpt")
	tagDesc       = Sig("desc")
	typeXYZ       = Sig("XYZ ")
	typeText      = Sig("text")
)

// D50 is the ICC profile connection space illuminant.
var D50 = [3]float64{0.9642, 1.0, 0.8249}

// NewSRGB builds the reference sRGB display profile. The profile is encoded
// as a container and opened through Open, like any caller-supplied profile,
// but without probes.
func NewSRGB() (*Profile, error) {
	p := &Profile{
		Header: Header{
			CMM:        Sig("lcms"),
			Version:    Version{Major: 4, Minor: 3},
			Class:      ClassDisplay,
			ColorSpace: SpaceRGB,
			PCS:        SpaceXYZ,
		},
		Tags: []Tag{
			{Sig: tagDesc, Data: textTag("sRGB built-in")},
			{Sig: tagMediaWhite, Data: xyzTag(D50)},
		},
	}
	return Open(p.Encode(), nil)
}

// MediaWhite decodes the wtpt tag, falling back to D50.
func (p *Profile) MediaWhite() [3]float64 {
	data, ok := p.Tag(tagMediaWhite)
	if !ok || len(data) < 20 || Signature(binary.BigEndian.Uint32(data[0:4])) != typeXYZ {
		return D50
	}
	var w [3]float64
	for i := range w {
		w[i] = s15Fixed16(binary.BigEndian.Uint32(data[8+4*i:]))
	}
	if w[1] <= 0 || math.IsNaN(w[0]) {
		return D50
	}
	return w
}

func xyzTag(v [3]float64) []byte {
	out := make([]byte, 20)
	binary.BigEndian.PutUint32(out[0:4], uint32(typeXYZ))
	for i, f := range v {
		binary.BigEndian.PutUint32(out[8+4*i:], uint32(int32(math.Round(f*65536))))
	}
	return out
}

func textTag(s string) []byte {
	out := make([]byte, 8+len(s)+1)
	binary.BigEndian.PutUint32(out[0:4], uint32(typeText))
	copy(out[8:], s)
	return out
}

func s15Fixed16(v uint32) float64 {
	return float64(int32(v)) / 65536
}
