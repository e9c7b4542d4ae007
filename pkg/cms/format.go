/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: format.go
Description: Pixel buffer layouts accepted by colour transforms and the per-space channel
codecs that move pixels in and out of go-colorful colours.
*/

package cms

import (
	"fmt"
	"math"

	"github.com/kleascm/fixreverter-harness/pkg/icc"
	"github.com/lucasb-eyer/go-colorful"
)

// Format describes one pixel layout.
type Format struct {
	// Space is the colour space of the buffer. Zero accepts whatever space
	// the profile declares.
	Space icc.ColorSpace
	// Channels is the number of samples per pixel.
	Channels int
	// Bytes is the sample width: 1 or 2 for integers, 0 for float64.
	Bytes int
	// Swap stores the channels in reverse order, e.g. BGR.
	Swap bool
}

// TypeBGR8 is 8-bit RGB with the channels stored blue first.
var TypeBGR8 = Format{Space: icc.SpaceRGB, Channels: 3, Bytes: 1, Swap: true}

// TypeRGB8 is 8-bit RGB.
var TypeRGB8 = Format{Space: icc.SpaceRGB, Channels: 3, Bytes: 1}

// TypeLabDbl is Lab stored as float64 samples.
var TypeLabDbl = Format{Space: icc.SpaceLab, Channels: 3, Bytes: 0}

// IsFloat reports whether samples are float64.
func (f Format) IsFloat() bool { return f.Bytes == 0 }

// PixelSize returns the number of buffer elements per pixel.
func (f Format) PixelSize() int {
	if f.Bytes == 2 {
		return f.Channels * 2
	}
	return f.Channels
}

func (f Format) String() string {
	width := "dbl"
	if f.Bytes > 0 {
		width = fmt.Sprintf("%d", f.Bytes*8)
	}
	space := "ANY"
	if f.Space != 0 {
		space = f.Space.String()
	}
	return fmt.Sprintf("%s/%d/%s", space, f.Channels, width)
}

// decoder turns normalised samples into a colour. 8-bit and 16-bit samples
// are normalised to [0,1] before decoding; float samples are passed through
// after toUnit.
type decoder struct {
	toUnit func(v []float64)
	decode func(v []float64) colorful.Color
	// fromInt maps [0,1] integer samples into the units decode expects.
	fromInt func(v []float64)
}

var decoders = map[icc.ColorSpace]decoder{
	icc.SpaceLab: {
		decode: func(v []float64) colorful.Color {
			return colorful.LabWhiteRef(v[0]/100, v[1]/100, v[2]/100, colorful.D50)
		},
		fromInt: func(v []float64) {
			v[0] *= 100
			v[1] = v[1]*255 - 128
			v[2] = v[2]*255 - 128
		},
	},
	icc.SpaceLuv: {
		decode: func(v []float64) colorful.Color {
			return colorful.LuvWhiteRef(v[0]/100, v[1]/100, v[2]/100, colorful.D50)
		},
		fromInt: func(v []float64) {
			v[0] *= 100
			v[1] = v[1]*255 - 128
			v[2] = v[2]*255 - 128
		},
	},
	icc.SpaceXYZ: {
		decode: func(v []float64) colorful.Color { return colorful.Xyz(v[0], v[1], v[2]) },
	},
	icc.SpaceYxy: {
		decode: func(v []float64) colorful.Color { return colorful.Xyy(v[1], v[2], v[0]) },
	},
	icc.SpaceRGB: {
		decode: func(v []float64) colorful.Color { return colorful.Color{R: v[0], G: v[1], B: v[2]} },
	},
	icc.SpaceGray: {
		decode: func(v []float64) colorful.Color { return colorful.Color{R: v[0], G: v[0], B: v[0]} },
	},
	icc.SpaceHSV: {
		decode: func(v []float64) colorful.Color { return colorful.Hsv(v[0]*360, v[1], v[2]) },
	},
	icc.SpaceHLS: {
		decode: func(v []float64) colorful.Color { return colorful.Hsl(v[0]*360, v[2], v[1]) },
	},
	icc.SpaceCMY: {
		decode: func(v []float64) colorful.Color {
			return colorful.Color{R: 1 - v[0], G: 1 - v[1], B: 1 - v[2]}
		},
	},
	icc.SpaceCMYK: {
		// Float ink is expressed in percent.
		toUnit: func(v []float64) {
			for i := range v {
				v[i] /= 100
			}
		},
		decode: func(v []float64) colorful.Color {
			k := 1 - v[3]
			return colorful.Color{R: (1 - v[0]) * k, G: (1 - v[1]) * k, B: (1 - v[2]) * k}
		},
	},
}

// encoder writes a colour as [0,1] samples.
type encoder func(c colorful.Color, v []float64)

var encoders = map[icc.ColorSpace]encoder{
	icc.SpaceRGB: func(c colorful.Color, v []float64) {
		c = c.Clamped()
		v[0], v[1], v[2] = c.R, c.G, c.B
	},
	icc.SpaceGray: func(c colorful.Color, v []float64) {
		l, _, _ := c.Clamped().LabWhiteRef(colorful.D50)
		v[0] = l
	},
}

func quantize(v, full float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return full
	}
	return math.Round(v * full)
}
