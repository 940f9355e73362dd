package adpcm

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Frames whose energy is at or below this are skipped by the analysis
const ANALYSIS_THRESHOLD = 10.0

// Lloyd iterations run after each split
const REFINE_ITERATIONS = 2

const reflectionLimit = 0.9999999999

// difference between 1 and the next representable float64
const float64Epsilon = 2.220446049250313e-16

var ErrInvalidTable = errors.New("adpcm: invalid coefficient table")

type vector [3]float64
type matrix [3][3]float64

func (coefficients *Coefficients) Serialize(out io.Writer) error {
	_, err := io.WriteString(out, fmt.Sprintf("%d\n", PREDICTOR_COUNT))

	if err != nil {
		return err
	}

	for _, predictor := range coefficients {
		_, err = io.WriteString(out, fmt.Sprintf("%d %d\n", predictor.Coef1, predictor.Coef2))

		if err != nil {
			return err
		}
	}

	return nil
}

// ParseCoefficients reads the text format written by Serialize
func ParseCoefficients(in io.Reader) (*Coefficients, error) {
	content, err := io.ReadAll(in)

	if err != nil {
		return nil, err
	}

	var chunks = strings.Fields(string(content))

	if len(chunks) < 1 {
		return nil, fmt.Errorf("%w: missing predictor count", ErrInvalidTable)
	}

	npredictors, err := strconv.ParseInt(chunks[0], 10, 32)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}

	if npredictors != PREDICTOR_COUNT {
		return nil, fmt.Errorf("%w: expected %d predictors got %d", ErrInvalidTable, PREDICTOR_COUNT, npredictors)
	}

	if len(chunks)-1 != COEFFICIENT_COUNT {
		return nil, fmt.Errorf("%w: expected %d values got %d", ErrInvalidTable, COEFFICIENT_COUNT, len(chunks)-1)
	}

	var values [COEFFICIENT_COUNT]int16

	for i := range values {
		val, err := strconv.ParseInt(chunks[i+1], 10, 16)

		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
		}

		values[i] = int16(val)
	}

	return CoefficientsFromSlice(values[:]), nil
}

// autocorrelation vector of the frame in the second half of pcm against its
// history in the first half
func innerProductMerge(pcm *[SAMPLES_PER_FRAME * 2]int16, out *vector) {
	for i := 0; i <= 2; i++ {
		out[i] = 0
		for x := 0; x < SAMPLES_PER_FRAME; x++ {
			out[i] -= float64(pcm[SAMPLES_PER_FRAME+x-i]) * float64(pcm[SAMPLES_PER_FRAME+x])
		}
	}
}

func outerProductMerge(pcm *[SAMPLES_PER_FRAME * 2]int16, mtx *matrix) {
	for x := 1; x <= 2; x++ {
		for y := 1; y <= 2; y++ {
			mtx[x][y] = 0
			for z := 0; z < SAMPLES_PER_FRAME; z++ {
				mtx[x][y] += float64(pcm[SAMPLES_PER_FRAME+z-x]) * float64(pcm[SAMPLES_PER_FRAME+z-y])
			}
		}
	}
}

// analyzeRanges LU decomposes the 2x2 system in place with partial pivoting.
// Returns true when the system is too close to singular to solve.
func analyzeRanges(mtx *matrix, indices *[3]int) bool {
	var recips [3]float64

	for x := 1; x <= 2; x++ {
		var val = math.Max(math.Abs(mtx[x][1]), math.Abs(mtx[x][2]))

		if val < float64Epsilon {
			return true
		}

		recips[x] = 1.0 / val
	}

	var maxIndex = 0

	for i := 1; i <= 2; i++ {
		for x := 1; x < i; x++ {
			var tmp = mtx[x][i]
			for y := 1; y < x; y++ {
				tmp -= mtx[x][y] * mtx[y][i]
			}
			mtx[x][i] = tmp
		}

		var val = 0.0

		for x := i; x <= 2; x++ {
			var tmp = mtx[x][i]
			for y := 1; y < i; y++ {
				tmp -= mtx[x][y] * mtx[y][i]
			}
			mtx[x][i] = tmp

			tmp = math.Abs(tmp) * recips[x]
			if tmp >= val {
				val = tmp
				maxIndex = x
			}
		}

		if maxIndex != i {
			for y := 1; y <= 2; y++ {
				mtx[maxIndex][y], mtx[i][y] = mtx[i][y], mtx[maxIndex][y]
			}
			recips[maxIndex] = recips[i]
		}

		indices[i] = maxIndex

		if i != 2 {
			var tmp = 1.0 / mtx[i][i]
			for x := i + 1; x <= 2; x++ {
				mtx[x][i] *= tmp
			}
		}
	}

	var min = 1.0e10
	var max = 0.0

	for i := 1; i <= 2; i++ {
		var tmp = math.Abs(mtx[i][i])

		if tmp < min {
			min = tmp
		}

		if tmp > max {
			max = tmp
		}
	}

	return min/max < 1.0e-10
}

// bidirectionalFilter solves the decomposed system by forward and back
// substitution, leaving (1, a, b) in vec.
func bidirectionalFilter(mtx *matrix, indices *[3]int, vec *vector) {
	var x = 0

	for i := 1; i <= 2; i++ {
		var index = indices[i]
		var tmp = vec[index]
		vec[index] = vec[i]

		if x != 0 {
			for y := x; y <= i-1; y++ {
				tmp -= vec[y] * mtx[i][y]
			}
		} else if tmp != 0 {
			x = i
		}

		vec[i] = tmp
	}

	for i := 2; i >= 1; i-- {
		var tmp = vec[i]
		for y := i + 1; y <= 2; y++ {
			tmp -= vec[y] * mtx[i][y]
		}
		vec[i] = tmp / mtx[i][i]
	}

	vec[0] = 1.0
}

// quadraticMerge converts the predictor to reflection coefficients. Returns
// true if the predictor is unstable.
func quadraticMerge(vec *vector) bool {
	var v2 = vec[2]
	var tmp = 1.0 - (v2 * v2)

	if tmp == 0 {
		return true
	}

	var v0 = (vec[0] - (v2 * v2)) / tmp
	var v1 = (vec[1] - (vec[1] * v2)) / tmp

	vec[0] = v0
	vec[1] = v1

	return math.Abs(v1) > 1.0
}

// finishRecord clamps the reflection coefficients in in and converts them back
// to a predictor in out
func finishRecord(in *vector, out *vector) {
	for z := 1; z <= 2; z++ {
		if in[z] >= 1.0 {
			in[z] = reflectionLimit
		} else if in[z] <= -1.0 {
			in[z] = -reflectionLimit
		}
	}

	out[0] = 1.0
	out[1] = (in[2] * in[1]) + in[1]
	out[2] = in[2]
}

// matrixFilter converts a predictor to its normalized autocorrelation
func matrixFilter(src *vector, dst *vector) {
	var mtx matrix

	mtx[2][0] = 1.0
	for i := 1; i <= 2; i++ {
		mtx[2][i] = -src[i]
	}

	for i := 2; i > 0; i-- {
		var val = 1.0 - (mtx[i][i] * mtx[i][i])
		for y := 1; y <= i; y++ {
			mtx[i-1][y] = ((mtx[i][i] * mtx[i][y]) + mtx[i][y]) / val
		}
	}

	dst[0] = 1.0
	for i := 1; i <= 2; i++ {
		dst[i] = 0
		for y := 1; y <= i; y++ {
			dst[i] += mtx[i][y] * dst[i-y]
		}
	}
}

// mergeFinishRecord runs the Levinson-Durbin recursion over an autocorrelation
// and stores the stabilized predictor in dst
func mergeFinishRecord(src *vector, dst *vector) {
	var tmp vector
	var val = src[0]

	dst[0] = 1.0
	for i := 1; i <= 2; i++ {
		var v2 = 0.0
		for y := 1; y < i; y++ {
			v2 += dst[y] * src[i-y]
		}

		if val > 0 {
			dst[i] = -(v2 + src[i]) / val
		} else {
			dst[i] = 0
		}

		tmp[i] = dst[i]

		for y := 1; y < i; y++ {
			dst[y] += dst[i] * dst[i-y]
		}

		val *= 1.0 - (dst[i] * dst[i])
	}

	finishRecord(&tmp, dst)
}

// contrastVectors is the distance between a centroid predictor and a record
// used when clustering. It is the prediction error energy of the centroid
// over the record's autocorrelation.
func contrastVectors(centroid *vector, record *vector) float64 {
	var val = (record[2]*record[1] + -record[1]) / (1.0 - record[2]*record[2])
	var val1 = (centroid[0] * centroid[0]) + (centroid[1] * centroid[1]) + (centroid[2] * centroid[2])
	var val2 = (centroid[0] * centroid[1]) + (centroid[1] * centroid[2])
	var val3 = centroid[0] * centroid[2]

	return val1 + (2.0 * val * val2) + (2.0 * (-record[1]*val + -record[2]) * val3)
}

func split(best *[PREDICTOR_COUNT]vector, count int) {
	var delta = vector{0, -1, 0}

	for i := 0; i < count; i++ {
		for y := 0; y <= 2; y++ {
			best[count+i][y] = (0.01 * delta[y]) + best[i][y]
		}
	}
}

func refine(best *[PREDICTOR_COUNT]vector, count int, records []vector) {
	var sums [PREDICTOR_COUNT]vector
	var counts [PREDICTOR_COUNT]int
	var filtered vector

	for iter := 0; iter < REFINE_ITERATIONS; iter++ {
		for i := 0; i < count; i++ {
			counts[i] = 0
			sums[i] = vector{}
		}

		for z := range records {
			var bestIndex = 0
			var bestValue = 1.0e30

			for i := 0; i < count; i++ {
				var dist = contrastVectors(&best[i], &records[z])

				if dist < bestValue {
					bestValue = dist
					bestIndex = i
				}
			}

			counts[bestIndex]++
			matrixFilter(&records[z], &filtered)

			for i := 0; i <= 2; i++ {
				sums[bestIndex][i] += filtered[i]
			}
		}

		for i := 0; i < count; i++ {
			if counts[i] > 0 {
				for y := 0; y <= 2; y++ {
					sums[i][y] /= float64(counts[i])
				}

				mergeFinishRecord(&sums[i], &best[i])
			}
		}
	}
}

// collectRecords runs a stabilized 2nd order linear prediction on every frame
// with enough energy and returns the resulting predictors.
func collectRecords(pcmData []int16) []vector {
	var records []vector
	var history [SAMPLES_PER_FRAME * 2]int16
	var vec vector
	var mtx matrix
	var indices [3]int

	for curr := 0; curr < len(pcmData); curr += SAMPLES_PER_FRAME {
		var end = curr + SAMPLES_PER_FRAME

		if end > len(pcmData) {
			end = len(pcmData)
		}

		var copied = copy(history[SAMPLES_PER_FRAME:], pcmData[curr:end])

		for i := SAMPLES_PER_FRAME + copied; i < len(history); i++ {
			history[i] = 0
		}

		innerProductMerge(&history, &vec)

		if math.Abs(vec[0]) > ANALYSIS_THRESHOLD {
			outerProductMerge(&history, &mtx)

			if !analyzeRanges(&mtx, &indices) {
				bidirectionalFilter(&mtx, &indices, &vec)

				if !quadraticMerge(&vec) {
					var record vector
					finishRecord(&vec, &record)
					records = append(records, record)
				}
			}
		}

		copy(history[:SAMPLES_PER_FRAME], history[SAMPLES_PER_FRAME:])
	}

	return records
}

// CalculateCoefficients designs a predictor table for the given PCM. If no
// frame of the input is usable, for example silence, every predictor is zero.
func CalculateCoefficients(pcmData []int16) *Coefficients {
	var records = collectRecords(pcmData)
	var result Coefficients

	if len(records) == 0 {
		return &result
	}

	var best [PREDICTOR_COUNT]vector
	var mean = vector{1, 0, 0}
	var filtered vector

	for z := range records {
		matrixFilter(&records[z], &filtered)

		for y := 1; y <= 2; y++ {
			mean[y] += filtered[y]
		}
	}

	for y := 1; y <= 2; y++ {
		mean[y] /= float64(len(records))
	}

	mergeFinishRecord(&mean, &best[0])

	for count := 1; count < PREDICTOR_COUNT; count *= 2 {
		split(&best, count)
		refine(&best, count*2, records)
	}

	for z := range result {
		result[z].Coef1 = roundSaturate16(-best[z][1] * COEFFICIENT_SCALE)
		result[z].Coef2 = roundSaturate16(-best[z][2] * COEFFICIENT_SCALE)
	}

	return &result
}
