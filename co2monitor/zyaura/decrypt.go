package zyaura

import (
	"github.com/vit1251/go-co2mon/co2monitor"
)

// magicWord seeds the additive mask removed in the last decrypt step.
var magicWord = [8]byte{'H', 't', 'e', 'm', 'p', '9', '9', 'e'}

// Decrypt decodes one raw report using the session key. The transform
// is fixed by the device firmware: a byte permutation, an XOR with the
// key, a rotation of the whole 64-bit frame right by 3 bits, and
// removal of an additive mask derived from magicWord. All byte
// arithmetic wraps mod 256. Pure; the caller's frame is not modified.
func Decrypt(frame, key co2monitor.Frame) co2monitor.Frame {
	buf := frame
	buf[0], buf[2] = buf[2], buf[0]
	buf[1], buf[4] = buf[4], buf[1]
	buf[3], buf[7] = buf[7], buf[3]
	buf[5], buf[6] = buf[6], buf[5]

	for i := range buf {
		buf[i] ^= key[i]
	}

	var out co2monitor.Frame
	for i := 7; i >= 1; i-- {
		out[i] = buf[i-1]<<5 | buf[i]>>3
	}
	out[0] = buf[7]<<5 | buf[0]>>3

	for i := range out {
		mask := magicWord[i]<<4 | magicWord[i]>>4
		out[i] -= mask
	}

	return out
}
