// ABOUTME: Linear-interpolation resampler and channel mixer
// ABOUTME: Produces interleaved 16-bit output at the configured stream format
package audio

// ResampleAndMix converts in (inFrames frames of inChannels float32 samples
// at inRate) to interleaved int16 frames at outRate/outChannels, appending
// into dst (reused when large enough). It returns the output slice and the
// number of output frames.
//
// Channel mapping, in priority order: mono input is duplicated to both
// stereo outputs, stereo input is averaged down to mono, equal counts map
// channel-for-channel, and any other combination maps output channel c to
// input channel c mod inChannels. Every sample is clamped to [-1, 1] before
// quantization. At the last input frame interpolation degrades to the
// nearest sample; the buffer is never read past its end.
func ResampleAndMix(dst []int16, in []float32, inFrames, inChannels, inRate, outRate, outChannels int) ([]int16, int) {
	if inFrames <= 0 || inChannels <= 0 || outChannels <= 0 || inRate <= 0 || outRate <= 0 {
		return dst[:0], 0
	}

	outFrames := inFrames * outRate / inRate
	if outFrames <= 0 {
		return dst[:0], 0
	}

	n := outFrames * outChannels
	if cap(dst) < n {
		dst = make([]int16, n)
	}
	dst = dst[:n]

	step := float64(inRate) / float64(outRate)

	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		idx := int(pos)
		frac := float32(pos - float64(idx))
		if idx >= inFrames-1 {
			idx = inFrames - 1
			frac = 0
		}

		for c := 0; c < outChannels; c++ {
			var s float32
			switch {
			case inChannels == 1 && outChannels == 2:
				s = lerpSample(in, idx, inFrames, 1, 0, frac)
			case inChannels == 2 && outChannels == 1:
				l := lerpSample(in, idx, inFrames, 2, 0, frac)
				r := lerpSample(in, idx, inFrames, 2, 1, frac)
				s = (l + r) / 2
			case inChannels == outChannels:
				s = lerpSample(in, idx, inFrames, inChannels, c, frac)
			default:
				s = lerpSample(in, idx, inFrames, inChannels, c%inChannels, frac)
			}

			if s > 1 {
				s = 1
			} else if s < -1 {
				s = -1
			}
			dst[i*outChannels+c] = int16(s * 32767.0)
		}
	}

	return dst, outFrames
}

// lerpSample interpolates between frame idx and idx+1 of one channel.
func lerpSample(in []float32, idx, frames, channels, ch int, frac float32) float32 {
	a := in[idx*channels+ch]
	if frac == 0 || idx+1 >= frames {
		return a
	}
	b := in[(idx+1)*channels+ch]
	return a + (b-a)*frac
}
