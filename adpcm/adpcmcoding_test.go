package adpcm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineWave(length int, frequency float64, sampleRate float64, amplitude float64) []int16 {
	var result = make([]int16, length)

	for i := range result {
		result[i] = int16(amplitude * math.Sin(2*math.Pi*frequency*float64(i)/sampleRate))
	}

	return result
}

// chord mixes a few partials and a slow envelope so frames differ
func chord(length int) []int16 {
	var result = make([]int16, length)

	for i := range result {
		var t = float64(i) / 32000
		var envelope = 0.5 + 0.5*math.Sin(2*math.Pi*3*t)
		var value = 6000*math.Sin(2*math.Pi*220*t) + 3000*math.Sin(2*math.Pi*660*t) + 1500*math.Sin(2*math.Pi*1320*t)
		result[i] = int16(envelope * value)
	}

	return result
}

// goldenInput is a noisy sawtooth from a fixed LCG so the expected table and
// stream can be written down exactly
func goldenInput() []int16 {
	var seed uint32 = 12345
	var result = make([]int16, 200)

	for i := range result {
		seed = seed*1103515245 + 12345
		var noise = int32((seed>>16)&0x3ff) - 512
		var saw = int32(i%40)*600 - 12000
		result[i] = int16(saw + noise)
	}

	return result
}

var goldenCoefficients = Coefficients{
	{Coef1: 1787, Coef2: -274},
	{Coef1: 1258, Coef2: 583},
	{Coef1: 1679, Coef2: -58},
	{Coef1: 1961, Coef2: -48},
	{Coef1: 1836, Coef2: -240},
	{Coef1: 1684, Coef2: 129},
	{Coef1: 1676, Coef2: -25},
	{Coef1: 2695, Coef2: -748},
}

func squaredError(a []int16, b []int16) float64 {
	var result = 0.0

	for i := range a {
		var diff = float64(a[i]) - float64(b[i])
		result += diff * diff
	}

	return result
}

func TestDecodeEmpty(t *testing.T) {
	var coefficients Coefficients

	var pcm = Decode(nil, &coefficients)
	assert.NotNil(t, pcm)
	assert.Empty(t, pcm)

	assert.Empty(t, Decode([]byte{0x00}, &coefficients))
}

func TestDecodeFrame(t *testing.T) {
	var coefficients Coefficients
	coefficients[0] = Predictor{Coef1: 2048, Coef2: 0}

	t.Run("accumulates with a unit predictor", func(t *testing.T) {
		var frame = []byte{0x00, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11}
		var pcm = Decode(frame, &coefficients)

		require.Len(t, pcm, SAMPLES_PER_FRAME)
		for i, sample := range pcm {
			assert.Equal(t, int16(i+1), sample)
		}
	})

	t.Run("negative nibbles round toward negative infinity", func(t *testing.T) {
		var zero Coefficients
		var frame = []byte{0x00, 0x18, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
		var pcm = Decode(frame, &zero)

		assert.Equal(t, int16(1), pcm[0])
		assert.Equal(t, int16(-8), pcm[1])
	})

	t.Run("saturates instead of wrapping", func(t *testing.T) {
		var frame = []byte{0x0c, 0x77, 0x77, 0x77, 0x77, 0x77, 0x77, 0x77}
		var pcm = Decode(frame, &coefficients)

		assert.Equal(t, int16(28672), pcm[0])
		for _, sample := range pcm[1:] {
			assert.Equal(t, int16(32767), sample)
		}
	})

	t.Run("predictor index uses three bits", func(t *testing.T) {
		var table Coefficients
		table[7] = Predictor{Coef1: 2048}

		var frame = []byte{0xf0, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11}
		var pcm = Decode(frame, &table)

		assert.Equal(t, int16(14), pcm[13])
	})
}

func TestDecodeWithOptions(t *testing.T) {
	var coefficients Coefficients
	coefficients[0] = Predictor{Coef1: 2048, Coef2: 0}

	var frame = []byte{0x00, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11}

	t.Run("short sample count", func(t *testing.T) {
		var pcm = DecodeWithOptions(frame, &coefficients, DecodeOptions{SampleCount: 5})
		assert.Equal(t, []int16{1, 2, 3, 4, 5}, pcm)
	})

	t.Run("sample count is clamped to the data", func(t *testing.T) {
		var pcm = DecodeWithOptions(frame, &coefficients, DecodeOptions{SampleCount: 1000})
		assert.Len(t, pcm, SAMPLES_PER_FRAME)
	})

	t.Run("seeded history", func(t *testing.T) {
		var pcm = DecodeWithOptions(frame, &coefficients, DecodeOptions{
			SampleCount: 3,
			Start:       Context{Hist1: 100, Hist2: 50},
		})
		assert.Equal(t, []int16{101, 102, 103}, pcm)
	})
}

func TestEncodeLength(t *testing.T) {
	var coefficients = CalculateCoefficients(chord(2000))

	for length := 0; length <= 60; length++ {
		var encoded = Encode(chord(length), coefficients)
		assert.Len(t, encoded, SampleCountToByteCount(length), "length %d", length)
	}
}

func TestEncodeSilence(t *testing.T) {
	var coefficients Coefficients

	var encoded = Encode(make([]int16, 140), &coefficients)

	assert.Equal(t, make([]byte, 80), encoded)
}

func TestEncodeGolden(t *testing.T) {
	var expected = []byte{
		0x7b, 0xa2, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x58, 0x12, 0x13, 0xf1, 0x61, 0x41, 0x43, 0x54,
		0x6c, 0x01, 0x00, 0x10, 0x10, 0x11, 0x01, 0xbf,
		0x17, 0x40, 0xea, 0x11, 0xf4, 0x10, 0x31, 0x61,
		0x77, 0x61, 0x22, 0x07, 0xf7, 0x34, 0xf7, 0x77,
		0x0c, 0x01, 0x01, 0x10, 0x11, 0x01, 0xb0, 0x0f,
		0x57, 0xce, 0xe0, 0x83, 0xed, 0x3f, 0xe1, 0x27,
		0x38, 0x3f, 0x5f, 0x42, 0x26, 0x15, 0x34, 0x07,
		0x7c, 0x00, 0x01, 0x00, 0x01, 0xa2, 0x00, 0x00,
		0x77, 0x9f, 0x2f, 0x02, 0x07, 0xf1, 0x3d, 0x74,
		0x78, 0xf2, 0x4f, 0x22, 0x33, 0xf7, 0xe3, 0x62,
		0x3c, 0x00, 0x10, 0x01, 0xa0, 0x00, 0x00, 0x00,
		0x57, 0xc1, 0x3a, 0x60, 0x13, 0x03, 0x56, 0x17,
		0x18, 0x53, 0x14, 0x53, 0x47, 0x75, 0x55, 0x55,
		0x2a, 0x33, 0x22,
	}

	var encoded = Encode(goldenInput(), &goldenCoefficients)

	assert.Equal(t, expected, encoded)
}

func TestEncodeShortFrameSearchesPaddedFrame(t *testing.T) {
	var coefficients Coefficients
	coefficients[0] = Predictor{Coef1: 2048}
	coefficients[1] = Predictor{Coef1: 4096, Coef2: -2048}

	// the ramp alone is predicted exactly by the second predictor, but the
	// zeros padding the frame are not, so the first predictor wins at scale 10
	var pcm = []int16{1000, 2000, 3000, 4000, 5000}
	var encoded = Encode(pcm, &coefficients)

	assert.Equal(t, []byte{0x0a, 0x11, 0x11, 0x10}, encoded)
	assert.Equal(t, []int16{1024, 2048, 3072, 4096, 5120}, Decode(encoded, &coefficients)[:len(pcm)])
}

func TestEncodeWithPredictorScaleJump(t *testing.T) {
	var input = []int16{0, 0, 2161, -205, -2113, 1541, -499, -2112, 625, -1072, 1053, 1715, 180, 1093, -770, -532}
	var result encodeCandidate

	// the first pass at scale 9 overflows by 306, which skips scale 10
	encodeWithPredictor(input, Predictor{Coef1: 5989, Coef2: 4002}, &result)

	assert.Equal(t, int32(11), result.scale)
	assert.Equal(t, [SAMPLES_PER_FRAME]int32{1, -3, -3, 5, -1, -3, 4, 0, 2, 0, -5, -1, -3, -1}, result.nibbles)
}

func TestEncodeWithPredictorScaleCap(t *testing.T) {
	var input = make([]int16, SAMPLES_PER_FRAME+2)
	input[2] = 8

	var result encodeCandidate

	// a huge overflow would push the scale far past the largest one
	encodeWithPredictor(input, Predictor{Coef1: 32767}, &result)

	assert.Equal(t, int32(MAX_SCALE), result.scale)
	assert.Equal(t, [SAMPLES_PER_FRAME]int32{}, result.nibbles)
}

func TestEncodeShortFrameZeroFill(t *testing.T) {
	var pcm = make([]int16, 15)
	for i := range pcm {
		pcm[i] = 1000
	}

	var encoded = Encode(pcm, CalculateCoefficients(pcm))

	require.Len(t, encoded, 10)
	assert.Equal(t, byte(0), encoded[9]&0x0f)
}

// Reconstruction error of a sample is bounded by its frame's quantization step.
func assertWithinStep(t *testing.T, original []int16, encoded []byte, decoded []int16) {
	require.GreaterOrEqual(t, len(decoded), len(original))

	for i := range original {
		var header = encoded[(i/SAMPLES_PER_FRAME)*BYTES_PER_FRAME]
		var step = float64(int(1) << lowNibble(header))
		var diff = math.Abs(float64(original[i]) - float64(decoded[i]))

		if !assert.LessOrEqual(t, diff, 2*step+1, "sample %d", i) {
			return
		}
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pcm  []int16
	}{
		{"sine", sineWave(1000, 440, 32000, 10000)},
		{"chord", chord(3001)},
		{"short", sineWave(9, 1000, 32000, 2000)},
		{"odd frame", chord(14*7 + 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var coefficients = CalculateCoefficients(tt.pcm)
			var encoded = Encode(tt.pcm, coefficients)
			var decoded = Decode(encoded, coefficients)

			assertWithinStep(t, tt.pcm, encoded, decoded)

			var exact = DecodeWithOptions(encoded, coefficients, DecodeOptions{SampleCount: len(tt.pcm)})
			assert.Len(t, exact, len(tt.pcm))
			assert.Equal(t, decoded[:len(tt.pcm)], exact)
		})
	}
}

func TestRoundTripZeroTable(t *testing.T) {
	var coefficients Coefficients
	var pcm = chord(700)

	var encoded = Encode(pcm, &coefficients)
	var decoded = Decode(encoded, &coefficients)

	assertWithinStep(t, pcm, encoded, decoded)
}

func TestDesignedTableBeatsZeroTable(t *testing.T) {
	var pcm = chord(6000)
	var zero Coefficients
	var designed = CalculateCoefficients(pcm)

	var designedError = squaredError(pcm, Decode(Encode(pcm, designed), designed))
	var zeroError = squaredError(pcm, Decode(Encode(pcm, &zero), &zero))

	assert.Less(t, designedError, zeroError)
}

func TestEncodeWithContext(t *testing.T) {
	var pcm = sineWave(14*20, 300, 32000, 8000)
	var coefficients = CalculateCoefficients(pcm)

	var start = Context{Hist1: pcm[len(pcm)-1], Hist2: pcm[len(pcm)-2]}
	var encoded = EncodeWithContext(pcm, coefficients, start)
	var decoded = DecodeWithOptions(encoded, coefficients, DecodeOptions{
		SampleCount: len(pcm),
		Start:       start,
	})

	assertWithinStep(t, pcm, encoded, decoded)
}

func TestEncodeDeterministic(t *testing.T) {
	var pcm = chord(2500)

	var first = CalculateCoefficients(pcm)
	var second = CalculateCoefficients(pcm)
	require.Equal(t, first, second)

	assert.Equal(t, Encode(pcm, first), Encode(pcm, second))
}

func TestLoopContext(t *testing.T) {
	var pcm = chord(14 * 40)
	var coefficients = CalculateCoefficients(pcm)
	var encoded = Encode(pcm, coefficients)
	var decoded = Decode(encoded, coefficients)

	t.Run("mid frame", func(t *testing.T) {
		var context = LoopContext(encoded, coefficients, 100)

		assert.Equal(t, int16(encoded[(100/14)*8]), context.PredictorScale)
		assert.Equal(t, decoded[99], context.Hist1)
		assert.Equal(t, decoded[98], context.Hist2)
	})

	t.Run("frame aligned loop resumes decoding", func(t *testing.T) {
		var loopStart = 14 * 8
		var context = LoopContext(encoded, coefficients, loopStart)

		var resumed = DecodeWithOptions(encoded[8*8:], coefficients, DecodeOptions{
			SampleCount: len(pcm) - loopStart,
			Start:       context,
		})

		assert.Equal(t, decoded[loopStart:], resumed)
	})

	t.Run("stream start", func(t *testing.T) {
		var context = LoopContext(encoded, coefficients, 0)
		assert.Equal(t, Context{PredictorScale: int16(encoded[0])}, context)
	})

	t.Run("out of range", func(t *testing.T) {
		assert.Equal(t, Context{}, LoopContext(encoded, coefficients, 1<<20))
	})
}
