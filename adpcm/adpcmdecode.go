package adpcm

// decodeFrame decodes up to SAMPLES_PER_FRAME samples from a single frame and
// returns the updated history.
func decodeFrame(frame []byte, coefficients *Coefficients, output []int16, hist1 int16, hist2 int16) (int16, int16) {
	var header = frame[0]
	var scale = int32(1<<lowNibble(header)) * COEFFICIENT_SCALE
	var predictor = coefficients[highNibble(header)&(PREDICTOR_COUNT-1)]

	var inIndex = 1

	for s := range output {
		var nibble int32

		if s%2 == 0 {
			nibble = highNibbleSigned(frame[inIndex])
		} else {
			nibble = lowNibbleSigned(frame[inIndex])
			inIndex++
		}

		var predicted = int32(predictor.Coef1)*int32(hist1) + int32(predictor.Coef2)*int32(hist2)
		var corrected = predicted + scale*nibble
		var sample = Clamp16((corrected + 1024) >> 11)

		hist2 = hist1
		hist1 = sample
		output[s] = sample
	}

	return hist1, hist2
}

// Decode converts a complete DSP ADPCM stream to PCM. The sample count is
// derived from the byte length and history starts at zero.
func Decode(data []byte, coefficients *Coefficients) []int16 {
	return DecodeWithOptions(data, coefficients, DecodeOptions{
		SampleCount: ByteCountToSampleCount(len(data)),
	})
}

func DecodeWithOptions(data []byte, coefficients *Coefficients, options DecodeOptions) []int16 {
	var sampleCount = options.SampleCount
	var available = ByteCountToSampleCount(len(data))

	if sampleCount > available {
		sampleCount = available
	}

	if sampleCount <= 0 {
		return []int16{}
	}

	var pcm = make([]int16, sampleCount)
	var hist1 = options.Start.Hist1
	var hist2 = options.Start.Hist2

	var frameCount = DivideByRoundUp(sampleCount, SAMPLES_PER_FRAME)

	for frame := 0; frame < frameCount; frame++ {
		var outStart = frame * SAMPLES_PER_FRAME
		var outEnd = outStart + SAMPLES_PER_FRAME

		if outEnd > sampleCount {
			outEnd = sampleCount
		}

		var inStart = frame * BYTES_PER_FRAME
		var inEnd = inStart + BYTES_PER_FRAME

		if inEnd > len(data) {
			inEnd = len(data)
		}

		hist1, hist2 = decodeFrame(data[inStart:inEnd], coefficients, pcm[outStart:outEnd], hist1, hist2)
	}

	return pcm
}

// LoopContext finds the decoder state needed to start playback at loopStart
// without decoding the samples before it.
func LoopContext(data []byte, coefficients *Coefficients, loopStart int) Context {
	var result Context

	var headerIndex = (loopStart / SAMPLES_PER_FRAME) * BYTES_PER_FRAME

	if loopStart < 0 || headerIndex >= len(data) {
		return result
	}

	result.PredictorScale = int16(data[headerIndex])

	if loopStart == 0 {
		return result
	}

	var pcm = DecodeWithOptions(data, coefficients, DecodeOptions{SampleCount: loopStart})

	if len(pcm) >= 1 {
		result.Hist1 = pcm[len(pcm)-1]
	}

	if len(pcm) >= 2 {
		result.Hist2 = pcm[len(pcm)-2]
	}

	return result
}
