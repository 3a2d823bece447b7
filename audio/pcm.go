package audio

import (
	"encoding/base64"
	"encoding/binary"
)

// FloatToPCM16 clips each sample to [-1, 1] and scales it to int16, using
// 32768 for negative values and 32767 for the rest. dst is reused when it
// has enough capacity.
func FloatToPCM16(dst []int16, src []float32) []int16 {
	if cap(dst) < len(src) {
		dst = make([]int16, len(src))
	}
	dst = dst[:len(src)]
	for i, s := range src {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		if s < 0 {
			dst[i] = int16(s * 32768)
		} else {
			dst[i] = int16(s * 32767)
		}
	}
	return dst
}

// EncodePCM16 returns samples as base64 little-endian PCM16.
func EncodePCM16(samples []int16) string {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// PCM16ToFloat is the inverse of FloatToPCM16 for little-endian byte input.
func PCM16ToFloat(data []byte) []float32 {
	out := make([]float32, len(data)/2)
	for i := range out {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(s) / 32768
	}
	return out
}
