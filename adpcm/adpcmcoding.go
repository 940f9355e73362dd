package adpcm

import "math"

// encodeCandidate holds the result of encoding one frame with one predictor
type encodeCandidate struct {
	// two history samples followed by the reconstructed frame
	pcm           [SAMPLES_PER_FRAME + 2]int32
	nibbles       [SAMPLES_PER_FRAME]int32
	scale         int32
	totalDistance float64
}

func iabs(x int32) int32 {
	if x < 0 {
		return -x
	} else {
		return x
	}
}

// quantize divides in single precision, the same way the reference encoder
// does, then rounds away from zero.
func quantize(distance int32, scale int32) int32 {
	var ratio = float64(float32(distance) / float32(scale))

	if distance > 0 {
		return int32(ratio + 0.4999999)
	} else {
		return int32(ratio - 0.4999999)
	}
}

// encodeWithPredictor searches for the smallest scale that represents the
// frame with the given predictor. input holds two history samples followed by
// a full frame of samples.
func encodeWithPredictor(input []int16, predictor Predictor, result *encodeCandidate) {
	var coef1 = int32(predictor.Coef1)
	var coef2 = int32(predictor.Coef2)

	result.pcm[0] = int32(input[0])
	result.pcm[1] = int32(input[1])

	// Estimate the scale from the prediction error with unquantized history
	var maxDistance int32 = 0

	for s := 0; s < SAMPLES_PER_FRAME; s++ {
		var predicted = (int32(input[s])*coef2 + int32(input[s+1])*coef1) / COEFFICIENT_SCALE
		var distance = int32(Clamp16(int32(input[s+2]) - predicted))

		if iabs(distance) > iabs(maxDistance) {
			maxDistance = distance
		}
	}

	var scale int32 = 0

	for scale <= MAX_SCALE && (maxDistance > 7 || maxDistance < -8) {
		maxDistance /= 2
		scale++
	}

	if scale <= 1 {
		scale = -1
	} else {
		scale = scale - 2
	}

	for {
		scale++

		var scaleFactor = int32(1<<scale) * COEFFICIENT_SCALE
		var maxOverflow int32 = 0

		result.totalDistance = 0

		for s := 0; s < SAMPLES_PER_FRAME; s++ {
			var inputSample = int32(input[s+2]) * COEFFICIENT_SCALE
			var predicted = result.pcm[s]*coef2 + result.pcm[s+1]*coef1
			var unclamped = quantize(inputSample-predicted, scaleFactor)
			var nibble = Clamp4(unclamped)

			if nibble != unclamped {
				var overflow = iabs(unclamped - nibble)

				if overflow > maxOverflow {
					maxOverflow = overflow
				}
			}

			result.nibbles[s] = nibble

			// decode the sample so later predictions use what a decoder will see
			var decoded = Clamp16((predicted + nibble*scaleFactor + 1024) >> 11)
			result.pcm[s+2] = int32(decoded)

			var actualDistance = float64(input[s+2]) - float64(decoded)
			result.totalDistance += actualDistance * actualDistance
		}

		// Every retry below MAX_SCALE raises the scale. A pass at MAX_SCALE
		// is final.
		if scale >= MAX_SCALE {
			break
		}

		for x := maxOverflow; x > 256; x >>= 1 {
			scale++

			if scale >= MAX_SCALE {
				scale = MAX_SCALE - 1
			}
		}

		if !(scale < MAX_SCALE && maxOverflow > 1) {
			break
		}
	}

	result.scale = scale
}

// encodeFrame encodes one frame into output. pcm holds two history samples
// followed by the samples of the frame, zero padded to a full frame. The
// search always runs over the padded frame; nibbles past sampleCount are
// written as zero. On return the real samples are replaced with the
// reconstructed output so the last two can seed the next frame.
func encodeFrame(pcm []int16, sampleCount int, coefficients *Coefficients, candidates *[PREDICTOR_COUNT]encodeCandidate, output []byte) {
	var best = 0
	var min = math.MaxFloat64

	for i := range coefficients {
		encodeWithPredictor(pcm, coefficients[i], &candidates[i])

		if candidates[i].totalDistance < min {
			min = candidates[i].totalDistance
			best = i
		}
	}

	var chosen = &candidates[best]

	for s := 0; s < sampleCount; s++ {
		pcm[s+2] = int16(chosen.pcm[s+2])
	}

	for s := sampleCount; s < SAMPLES_PER_FRAME; s++ {
		chosen.nibbles[s] = 0
	}

	output[0] = combineNibbles(int32(best), chosen.scale)

	for i := 0; i < SAMPLES_PER_FRAME/2; i++ {
		output[i+1] = combineNibbles(chosen.nibbles[i*2], chosen.nibbles[i*2+1])
	}
}

// Encode compresses PCM using the given coefficients with history starting at
// zero. The output is always SampleCountToByteCount(len(pcm)) bytes long.
func Encode(pcm []int16, coefficients *Coefficients) []byte {
	return EncodeWithContext(pcm, coefficients, Context{})
}

func EncodeWithContext(pcm []int16, coefficients *Coefficients, start Context) []byte {
	var sampleCount = len(pcm)
	var result = make([]byte, SampleCountToByteCount(sampleCount))

	var pcmBuffer [SAMPLES_PER_FRAME + 2]int16
	var frameBuffer [BYTES_PER_FRAME]byte
	var candidates [PREDICTOR_COUNT]encodeCandidate

	pcmBuffer[0] = start.Hist2
	pcmBuffer[1] = start.Hist1

	var frameCount = DivideByRoundUp(sampleCount, SAMPLES_PER_FRAME)

	for frame := 0; frame < frameCount; frame++ {
		var srcIndex = frame * SAMPLES_PER_FRAME
		var samplesToCopy = sampleCount - srcIndex

		if samplesToCopy > SAMPLES_PER_FRAME {
			samplesToCopy = SAMPLES_PER_FRAME
		}

		copy(pcmBuffer[2:], pcm[srcIndex:srcIndex+samplesToCopy])

		for i := 2 + samplesToCopy; i < len(pcmBuffer); i++ {
			pcmBuffer[i] = 0
		}

		encodeFrame(pcmBuffer[:], samplesToCopy, coefficients, &candidates, frameBuffer[:])

		var dstIndex = frame * BYTES_PER_FRAME
		copy(result[dstIndex:dstIndex+SampleCountToByteCount(samplesToCopy)], frameBuffer[:])

		pcmBuffer[0] = pcmBuffer[SAMPLES_PER_FRAME]
		pcmBuffer[1] = pcmBuffer[SAMPLES_PER_FRAME+1]
	}

	return result
}
