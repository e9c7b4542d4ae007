/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: cmstransform.go
Description: Colour transform harness. Opens the input as an ICC profile, builds a
one-pixel transform into 8-bit BGR sRGB and runs it once.
*/

package targets

import (
	"fmt"

	"github.com/kleascm/fixreverter-harness/pkg/cms"
	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/kleascm/fixreverter-harness/pkg/harness"
	"github.com/kleascm/fixreverter-harness/pkg/icc"
)

const cmsProbes = 639

// Stages reported in rejected results.
const (
	StageOpenProfile = "open-profile"
	StageSRGB        = "create-srgb"
	StageTransform   = "create-transform"
)

// CMSTransform feeds inputs to the colour engine.
type CMSTransform struct{}

func (CMSTransform) Name() string { return "cms_transform" }
func (CMSTransform) Probes() int  { return cmsProbes }

func (CMSTransform) Sites() gate.Sites { return icc.Sites.Merge(cms.Sites) }

func (CMSTransform) Run(data []byte, env *harness.Env) harness.Result {
	src, err := icc.Open(data, env.Probes)
	if err != nil {
		return harness.Reject(StageOpenProfile, err)
	}
	env.Resources.Acquire("profile")

	dst, err := icc.NewSRGB()
	if err != nil {
		src.Close()
		env.Resources.Release("profile")
		return harness.Reject(StageSRGB, err)
	}
	env.Resources.Acquire("profile")

	space := src.ColorSpace()
	channels := icc.ChannelsOf(space)
	format := cms.Format{Channels: channels, Bytes: 1}
	if space == icc.SpaceLab {
		format = cms.Format{Space: icc.SpaceLab, Channels: channels, Bytes: 0}
	}

	xf, err := cms.NewTransform(src, format, dst, cms.TypeBGR8, cms.IntentPerceptual, 0)
	src.Close()
	dst.Close()
	env.Resources.Release("profile")
	env.Resources.Release("profile")
	if err != nil {
		return harness.Reject(StageTransform, err)
	}
	env.Resources.Acquire("transform")
	defer env.Resources.Release("transform")
	defer xf.Delete()

	output := make([]byte, 4)
	if format.IsFloat() {
		input := make([]float64, channels)
		for i := range input {
			input[i] = 0.5
		}
		err = xf.DoFloat(input, output, 1)
	} else {
		input := make([]byte, channels)
		for i := range input {
			input[i] = 128
		}
		err = xf.Do8(input, output, 1)
	}
	if err != nil {
		return harness.Result{Outcome: harness.Completed, Err: err}
	}
	return harness.Complete(fmt.Sprintf("%s -> % x", format, output))
}
