package aiff

import (
	"errors"
	"fmt"
	"math"
)

const FORM_HEADER = 0x464F524D

const AIFC = 0x41494643
const AIFF = 0x41494646

const COMM = 0x434F4D4D
const INST = 0x494E5354
const SSND = 0x53534E44
const MARK = 0x4D41524B
const FVER = 0x46564552

const EXTENDED_BIAS = 0x3FFF

// AIFC compression types that hold plain PCM
const COMPRESSION_NONE = 0x4E4F4E45
const COMPRESSION_SOWT = 0x736F7774

const AIFC_VERSION_1 = 0xA2805140

// loop play modes used by the instrument chunk
const (
	LOOP_NONE             = 0
	LOOP_FORWARD          = 1
	LOOP_FORWARD_BACKWARD = 2
)

var ErrInvalidFile = errors.New("aiff: invalid file")

// Sign * 1.Mantissa * pow(2, Exponent - 0x3FFF)
type ExtendedFloat struct {
	Sign     bool
	Exponent uint16
	Mantissa uint64
}

type CommonChunk struct {
	NumChannels     int16
	NumSampleFrames uint32
	SampleSize      int16
	SampleRate      ExtendedFloat
	CompressionType uint32
	CompressionName string
}

type Marker struct {
	ID       uint16
	Position uint32
	Name     string
}

type MarkerChunk struct {
	Markers []Marker
}

type Loop struct {
	PlayMode  int16
	BeginLoop uint16
	EndLoop   uint16
}

type InstrumentChunk struct {
	BaseNote     uint8
	Detune       uint8
	LowNote      uint8
	HighNote     uint8
	LowVelocity  uint8
	HighVelocity uint8
	Gain         int16
	SustainLoop  Loop
	ReleaseLoop  Loop
}

type SoundDataChunk struct {
	Offset       uint32
	BlockSize    uint32
	WaveformData []byte
}

type Aiff struct {
	Compressed bool
	Common     *CommonChunk
	SoundData  *SoundDataChunk
	Markers    *MarkerChunk
	Instrument *InstrumentChunk
}

func (markers *MarkerChunk) FindMarker(id uint16) *Marker {
	for i := range markers.Markers {
		if markers.Markers[i].ID == id {
			return &markers.Markers[i]
		}
	}

	return nil
}

func ExtendedFromF64(val float64) ExtendedFloat {
	if val == 0 {
		return ExtendedFloat{}
	}

	// val = frac * 2^exp with frac in [0.5, 1), so frac * 2^64 sets the
	// explicit integer bit of the mantissa
	var frac, exp = math.Frexp(math.Abs(val))

	return ExtendedFloat{
		Sign:     val < 0,
		Exponent: uint16(exp - 1 + EXTENDED_BIAS),
		Mantissa: uint64(math.Ldexp(frac, 64)),
	}
}

func F64FromExtended(val ExtendedFloat) float64 {
	if val.Exponent == 0 && val.Mantissa == 0 {
		return 0
	}

	var result = math.Ldexp(float64(val.Mantissa), int(val.Exponent)-EXTENDED_BIAS-63)

	if val.Sign {
		return -result
	}

	return result
}

func (aiff *Aiff) SampleRate() int {
	return int(math.Round(F64FromExtended(aiff.Common.SampleRate)))
}

func (aiff *Aiff) littleEndian() bool {
	return aiff.Compressed && aiff.Common.CompressionType == COMPRESSION_SOWT
}

// Samples splits the sound data into one slice per channel. Only 16 bit
// uncompressed audio is supported.
func (aiff *Aiff) Samples() ([][]int16, error) {
	if aiff.Common == nil {
		return nil, fmt.Errorf("%w: missing COMM chunk", ErrInvalidFile)
	}

	if aiff.Common.SampleSize != 16 {
		return nil, fmt.Errorf("%w: should have 16 bits per sample", ErrInvalidFile)
	}

	if aiff.Compressed && aiff.Common.CompressionType != COMPRESSION_NONE && aiff.Common.CompressionType != COMPRESSION_SOWT {
		return nil, fmt.Errorf("%w: compressed sound data is not supported", ErrInvalidFile)
	}

	var channelCount = int(aiff.Common.NumChannels)

	if channelCount < 1 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidFile)
	}

	var data []byte

	if aiff.SoundData != nil {
		data = aiff.SoundData.WaveformData
	}

	var frameCount = min(int(aiff.Common.NumSampleFrames), len(data)/(2*channelCount))
	var result = make([][]int16, channelCount)

	for c := range result {
		result[c] = make([]int16, frameCount)
	}

	var swap = aiff.littleEndian()

	for i := 0; i < frameCount; i++ {
		for c := range result {
			var at = (i*channelCount + c) * 2

			if swap {
				result[c][i] = int16(uint16(data[at]) | uint16(data[at+1])<<8)
			} else {
				result[c][i] = int16(uint16(data[at])<<8 | uint16(data[at+1]))
			}
		}
	}

	return result, nil
}

// SustainLoop returns the sample range of the instrument sustain loop as
// [start, end). ok is false if the file has no usable loop. A forward
// backward loop reports the same range as a forward one.
func (aiff *Aiff) SustainLoop() (start int, end int, ok bool) {
	if aiff.Instrument == nil || aiff.Markers == nil || aiff.Instrument.SustainLoop.PlayMode == LOOP_NONE {
		return 0, 0, false
	}

	var begin = aiff.Markers.FindMarker(aiff.Instrument.SustainLoop.BeginLoop)
	var finish = aiff.Markers.FindMarker(aiff.Instrument.SustainLoop.EndLoop)

	if begin == nil || finish == nil || finish.Position <= begin.Position {
		return 0, 0, false
	}

	return int(begin.Position), int(finish.Position), true
}
