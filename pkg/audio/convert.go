package audio

import "encoding/binary"

// PCM16ToFloat32 converts interleaved 16-bit signed little-endian PCM to mono
// float32 samples in [-1.0, 1.0], averaging all channels of each frame. A
// trailing partial frame is ignored.
func PCM16ToFloat32(pcm []byte, channels int) []float32 {
	if channels < 1 {
		channels = 1
	}
	frameBytes := 2 * channels
	frames := len(pcm) / frameBytes
	out := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			idx := i*frameBytes + ch*2
			sum += float32(int16(binary.LittleEndian.Uint16(pcm[idx:idx+2]))) / 32768.0
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// Float32ToPCM16 converts float32 samples to 16-bit signed little-endian PCM,
// clamping values outside [-1.0, 1.0].
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s * 32767
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

// Resample converts mono float32 samples from srcRate to dstRate using linear
// interpolation. The input is returned unchanged when the rates match or
// either rate is not positive.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]float32, dstLen)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstLen {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))

		s0 := samples[idx]
		s1 := s0
		if idx+1 < len(samples) {
			s1 = samples[idx+1]
		}
		out[i] = s0*(1-frac) + s1*frac
	}
	return out
}
