package adpcm

import "math"

var signedNibbles = [16]int8{0, 1, 2, 3, 4, 5, 6, 7, -8, -7, -6, -5, -4, -3, -2, -1}

func DivideByRoundUp(value int, divisor int) int {
	return (value + divisor - 1) / divisor
}

func divideBy2RoundUp(value int) int {
	return (value / 2) + (value & 1)
}

func highNibble(value uint8) uint8 {
	return (value >> 4) & 0xf
}

func lowNibble(value uint8) uint8 {
	return value & 0xf
}

func highNibbleSigned(value uint8) int32 {
	return int32(signedNibbles[highNibble(value)])
}

func lowNibbleSigned(value uint8) int32 {
	return int32(signedNibbles[lowNibble(value)])
}

func combineNibbles(high int32, low int32) uint8 {
	return uint8((high&0xf)<<4) | uint8(low&0xf)
}

// Clamp16 saturates a value to the signed 16 bit range
func Clamp16(value int32) int16 {
	if value > math.MaxInt16 {
		return math.MaxInt16
	}

	if value < math.MinInt16 {
		return math.MinInt16
	}

	return int16(value)
}

// Clamp4 saturates a value to the signed 4 bit range [-8, 7]
func Clamp4(value int32) int32 {
	if value > 7 {
		return 7
	}

	if value < -8 {
		return -8
	}

	return value
}

// roundSaturate16 rounds half away from zero and saturates to int16. NaN
// becomes 0.
func roundSaturate16(value float64) int16 {
	if math.IsNaN(value) {
		return 0
	}

	if value > math.MaxInt16 {
		return math.MaxInt16
	}

	if value < math.MinInt16 {
		return math.MinInt16
	}

	return int16(math.Round(value))
}

// SampleCountToNibbleCount includes the two header nibbles of every frame,
// partial frames included.
func SampleCountToNibbleCount(sampleCount int) int {
	var frames = sampleCount / SAMPLES_PER_FRAME
	var extraSamples = sampleCount % SAMPLES_PER_FRAME
	var extraNibbles = 0

	if extraSamples != 0 {
		extraNibbles = extraSamples + 2
	}

	return NIBBLES_PER_FRAME*frames + extraNibbles
}

func SampleCountToByteCount(sampleCount int) int {
	return divideBy2RoundUp(SampleCountToNibbleCount(sampleCount))
}

func NibbleCountToSampleCount(nibbleCount int) int {
	var frames = nibbleCount / NIBBLES_PER_FRAME
	var extraNibbles = nibbleCount % NIBBLES_PER_FRAME
	var extraSamples = 0

	if extraNibbles > 2 {
		extraSamples = extraNibbles - 2
	}

	return SAMPLES_PER_FRAME*frames + extraSamples
}

func ByteCountToSampleCount(byteCount int) int {
	return NibbleCountToSampleCount(byteCount * 2)
}

// SampleToNibble returns the nibble address of a sample, the unit used by the
// start, end and current address fields of a DSP header.
func SampleToNibble(sample int) int {
	var frames = sample / SAMPLES_PER_FRAME
	var extraSamples = sample % SAMPLES_PER_FRAME

	return NIBBLES_PER_FRAME*frames + extraSamples + 2
}
