package audioio

// linearResample converts samples from srcRate to dstRate by linear
// interpolation. Quality is adequate for speech heading into a 16 kHz ASR
// front end; anything fancier would be wasted ahead of the denoiser.
func linearResample(samples []float32, srcRate, dstRate float64) []float32 {
	if len(samples) == 0 || srcRate == dstRate {
		return samples
	}

	ratio := srcRate / dstRate
	outLen := int(float64(len(samples)) / ratio)
	if outLen == 0 {
		return nil
	}

	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}
	return out
}
