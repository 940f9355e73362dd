package adpcm

// Frame geometry of the GameCube DSP ADPCM format. A frame holds a header
// byte followed by 14 packed 4 bit samples, so 16 nibbles or 8 bytes.
const SAMPLES_PER_FRAME = 14
const NIBBLES_PER_FRAME = 16
const BYTES_PER_FRAME = 8

const PREDICTOR_COUNT = 8
const COEFFICIENT_COUNT = PREDICTOR_COUNT * 2

// Largest scale exponent the encoder will pick
const MAX_SCALE = 12

// Coefficients are fixed point numbers with 11 fractional bits
const COEFFICIENT_SCALE = 2048

// A Predictor is one pair of 2 tap linear prediction coefficients.
// The predicted sample is (Coef1 * hist1 + Coef2 * hist2) / 2048.
type Predictor struct {
	Coef1 int16
	Coef2 int16
}

// Coefficients is the table of predictors used by a single channel. The
// predictor index stored in each frame header selects an entry.
type Coefficients [PREDICTOR_COUNT]Predictor

// Context is the decoder state at a point in the stream. Containers store one
// for the start of the stream and one for the loop point.
type Context struct {
	PredictorScale int16
	Hist1          int16
	Hist2          int16
}

type DecodeOptions struct {
	// Number of samples to decode. Values larger than what the data can
	// hold are clamped.
	SampleCount int
	Start       Context
}

// Flatten returns the table in the on disk order
// c0_1, c0_2, c1_1, c1_2, ... c7_1, c7_2
func (coefficients *Coefficients) Flatten() [COEFFICIENT_COUNT]int16 {
	var result [COEFFICIENT_COUNT]int16

	for i, predictor := range coefficients {
		result[i*2] = predictor.Coef1
		result[i*2+1] = predictor.Coef2
	}

	return result
}

// CoefficientsFromSlice builds a table from the flattened on disk order. Missing
// trailing values are left as zero and extra values are ignored.
func CoefficientsFromSlice(values []int16) *Coefficients {
	var result Coefficients

	for i := 0; i < PREDICTOR_COUNT; i++ {
		if i*2 < len(values) {
			result[i].Coef1 = values[i*2]
		}

		if i*2+1 < len(values) {
			result[i].Coef2 = values[i*2+1]
		}
	}

	return &result
}
