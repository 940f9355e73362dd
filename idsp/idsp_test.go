package idsp

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/lambertjamesd/gcadpcm/adpcm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(length int, frequency float64) []int16 {
	var result = make([]int16, length)

	for i := range result {
		result[i] = int16(9000 * math.Sin(2*math.Pi*frequency*float64(i)/32000))
	}

	return result
}

func encodedContainer(t *testing.T, channelCount int, sampleCount int) *Container {
	t.Helper()

	var container = Container{
		SampleRate:  32000,
		SampleCount: sampleCount,
	}

	for c := 0; c < channelCount; c++ {
		var pcm = tone(sampleCount, 220*float64(c+1))
		var coefficients = adpcm.CalculateCoefficients(pcm)
		container.AddChannel(adpcm.Encode(pcm, coefficients), coefficients)
	}

	return &container
}

func TestContainerRoundTrip(t *testing.T) {
	var pcm = tone(1000, 440)
	var coefficients = adpcm.CalculateCoefficients(pcm)
	var encoded = adpcm.Encode(pcm, coefficients)

	var container = Container{SampleRate: 32000, SampleCount: len(pcm)}
	container.AddChannel(encoded, coefficients)

	data, err := container.Serialize()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)

	require.Len(t, parsed.Channels, 1)
	assert.Equal(t, 32000, parsed.SampleRate)
	assert.Equal(t, len(pcm), parsed.SampleCount)
	assert.Equal(t, 0, parsed.InterleaveSize)
	assert.Equal(t, *coefficients, parsed.Channels[0].Coefficients)

	var decoded = parsed.Channels[0].Decode()
	assert.Equal(t, adpcm.DecodeWithOptions(encoded, coefficients, adpcm.DecodeOptions{SampleCount: len(pcm)}), decoded)
	assert.Len(t, decoded, len(pcm))
}

func TestSerializeLayout(t *testing.T) {
	var container = encodedContainer(t, 2, 100)
	container.InterleaveSize = 8

	data, err := container.Serialize()
	require.NoError(t, err)

	var audioSize = adpcm.SampleCountToByteCount(100)
	require.Len(t, data, HEADER_SIZE+2*CHANNEL_INFO_SIZE+2*audioSize)

	assert.Equal(t, []byte("IDSP"), data[0:4])
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(data[0x08:]))
	assert.Equal(t, uint32(32000), binary.BigEndian.Uint32(data[0x0c:]))
	assert.Equal(t, uint32(100), binary.BigEndian.Uint32(data[0x10:]))
	assert.Equal(t, uint32(8), binary.BigEndian.Uint32(data[0x1c:]))
	assert.Equal(t, uint32(HEADER_SIZE), binary.BigEndian.Uint32(data[0x20:]))
	assert.Equal(t, uint32(CHANNEL_INFO_SIZE), binary.BigEndian.Uint32(data[0x24:]))
	assert.Equal(t, uint32(0x100), binary.BigEndian.Uint32(data[0x28:]))
	assert.Equal(t, uint32(audioSize), binary.BigEndian.Uint32(data[0x2c:]))

	var second = HEADER_SIZE + CHANNEL_INFO_SIZE
	assert.Equal(t, uint32(100), binary.BigEndian.Uint32(data[second:]))
	assert.Equal(t, uint32(adpcm.SampleCountToNibbleCount(100)), binary.BigEndian.Uint32(data[second+4:]))
	assert.Equal(t, uint16(container.Channels[1].Coefficients[0].Coef1), binary.BigEndian.Uint16(data[second+0x1c:]))

	// first interleave block of each channel
	var audio = data[0x100:]
	assert.Equal(t, container.Channels[0].Audio[:8], audio[0:8])
	assert.Equal(t, container.Channels[1].Audio[:8], audio[8:16])
}

func TestLoopingContainer(t *testing.T) {
	var pcm = tone(14*30, 330)
	var coefficients = adpcm.CalculateCoefficients(pcm)
	var encoded = adpcm.Encode(pcm, coefficients)

	var container = Container{
		SampleRate:     22050,
		SampleCount:    len(pcm),
		Looping:        true,
		LoopStart:      28,
		LoopEnd:        100,
		InterleaveSize: 16,
	}

	var channel = container.AddChannel(encoded, coefficients)

	assert.Equal(t, adpcm.SampleToNibble(28), channel.StartAddress)
	assert.Equal(t, adpcm.SampleToNibble(99), channel.EndAddress)
	assert.Equal(t, FIRST_SAMPLE_ADDRESS, channel.CurrentAddress)
	assert.Equal(t, adpcm.LoopContext(encoded, coefficients, 28), channel.LoopContext)
	assert.Equal(t, int16(encoded[0]), channel.StartContext.PredictorScale)

	var out bytes.Buffer
	require.NoError(t, container.Write(&out))

	parsed, err := Read(&out)
	require.NoError(t, err)
	assert.Equal(t, &container, parsed)
}

func TestNonLoopingAddresses(t *testing.T) {
	var container = Container{SampleRate: 32000, SampleCount: 100}
	var channel = container.AddChannel(make([]byte, adpcm.SampleCountToByteCount(100)), &adpcm.Coefficients{})

	assert.False(t, channel.Looping)
	assert.Equal(t, FIRST_SAMPLE_ADDRESS, channel.StartAddress)
	assert.Equal(t, 115, channel.EndAddress)
	assert.Equal(t, adpcm.Context{}, channel.LoopContext)
}

func TestAddChannelOrder(t *testing.T) {
	var container = Container{SampleRate: 32000, SampleCount: 14}
	var first = []byte{0x01, 0, 0, 0, 0, 0, 0, 0}
	var second = []byte{0x02, 0, 0, 0, 0, 0, 0, 0}

	var channel = container.AddChannel(first, &adpcm.Coefficients{})
	assert.Same(t, &container.Channels[0], channel)

	channel = container.AddChannel(second, &adpcm.Coefficients{})
	assert.Same(t, &container.Channels[1], channel)

	require.Len(t, container.Channels, 2)
	assert.Equal(t, first, container.Channels[0].Audio)
	assert.Equal(t, int16(0x01), container.Channels[0].StartContext.PredictorScale)
	assert.Equal(t, second, container.Channels[1].Audio)
}

func TestParseErrors(t *testing.T) {
	data, err := encodedContainer(t, 2, 200).Serialize()
	require.NoError(t, err)

	withField := func(offset int, value uint32) []byte {
		var result = bytes.Clone(data)
		binary.BigEndian.PutUint32(result[offset:], value)
		return result
	}

	tests := []struct {
		name     string
		input    []byte
		expected error
	}{
		{"empty", nil, io.ErrUnexpectedEOF},
		{"bad magic", append([]byte("DSPI"), data[4:]...), ErrInvalidHeader},
		{"short header", data[:20], io.ErrUnexpectedEOF},
		{"short channel info", data[:HEADER_SIZE+CHANNEL_INFO_SIZE+4], io.ErrUnexpectedEOF},
		{"no channels", withField(0x08, 0), ErrInvalidHeader},
		{"small channel info", withField(0x24, 0x10), ErrInvalidHeader},
		{"audio past the end", data[:len(data)-1], ErrInvalidAudioLength},
		{"audio offset past the end", withField(0x28, 0x7fffffff), ErrInvalidAudioLength},
		{"negative audio length", withField(0x2c, 0xffffffff), ErrInvalidAudioLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestSerializeErrors(t *testing.T) {
	var empty Container

	_, err := empty.Serialize()
	assert.ErrorIs(t, err, ErrInvalidHeader)

	var container = encodedContainer(t, 2, 100)
	container.Channels[1].Audio = container.Channels[1].Audio[:10]

	_, err = container.Serialize()
	assert.ErrorIs(t, err, ErrInvalidAudioLength)
}
