package idsp

import "github.com/lambertjamesd/gcadpcm/adpcm"

// "IDSP"
const IDSP_MAGIC = 0x49445350

const HEADER_SIZE = 0x40
const CHANNEL_INFO_SIZE = 0x60

// nibble address of the first sample in a stream
const FIRST_SAMPLE_ADDRESS = 2

// streamHeader is the on disk layout of the start of the file. It is followed
// by zero padding up to HeaderSize.
type streamHeader struct {
	Magic           uint32
	Reserved        uint32
	ChannelCount    int32
	SampleRate      int32
	SampleCount     int32
	LoopStart       int32
	LoopEnd         int32
	InterleaveSize  int32
	HeaderSize      int32
	ChannelInfoSize int32
	AudioDataOffset int32
	AudioDataLength int32
}

// channelHeader is the on disk layout of one channel info block. It is
// followed by zero padding up to ChannelInfoSize.
type channelHeader struct {
	SampleCount    int32
	NibbleCount    int32
	SampleRate     int32
	Looping        int16
	Padding        int16
	StartAddress   int32
	EndAddress     int32
	CurrentAddress int32
	Coefficients   [adpcm.COEFFICIENT_COUNT]int16
	Gain           int16
	StartContext   adpcm.Context
	LoopContext    adpcm.Context
}

type Channel struct {
	SampleCount    int
	NibbleCount    int
	SampleRate     int
	Looping        bool
	StartAddress   int
	EndAddress     int
	CurrentAddress int
	Coefficients   adpcm.Coefficients
	Gain           int16
	StartContext   adpcm.Context
	LoopContext    adpcm.Context
	// ADPCM frames for this channel only
	Audio []byte
}

// Container is a parsed IDSP file. LoopEnd is exclusive.
type Container struct {
	SampleRate     int
	SampleCount    int
	Looping        bool
	LoopStart      int
	LoopEnd        int
	InterleaveSize int
	Channels       []Channel
}

func addressOf(sample int) int {
	if sample < 0 {
		sample = 0
	}

	return adpcm.SampleToNibble(sample)
}

// AddChannel appends a channel holding the encoded audio. Sample count, rate
// and loop points come from the container so they must be set first.
// The returned pointer refers into container.Channels and is only valid
// until the next call to AddChannel.
func (container *Container) AddChannel(audio []byte, coefficients *adpcm.Coefficients) *Channel {
	var channel = Channel{
		SampleCount:    container.SampleCount,
		NibbleCount:    adpcm.SampleCountToNibbleCount(container.SampleCount),
		SampleRate:     container.SampleRate,
		Looping:        container.Looping,
		StartAddress:   FIRST_SAMPLE_ADDRESS,
		EndAddress:     addressOf(container.SampleCount - 1),
		CurrentAddress: FIRST_SAMPLE_ADDRESS,
		Coefficients:   *coefficients,
		Audio:          audio,
	}

	if len(audio) > 0 {
		channel.StartContext.PredictorScale = int16(audio[0])
	}

	if container.Looping {
		channel.StartAddress = addressOf(container.LoopStart)
		channel.EndAddress = addressOf(container.LoopEnd - 1)
		channel.LoopContext = adpcm.LoopContext(audio, coefficients, container.LoopStart)
	}

	container.Channels = append(container.Channels, channel)

	return &container.Channels[len(container.Channels)-1]
}

// Decode converts a channel back to PCM using its own sample count and
// starting history
func (channel *Channel) Decode() []int16 {
	return adpcm.DecodeWithOptions(channel.Audio, &channel.Coefficients, adpcm.DecodeOptions{
		SampleCount: channel.SampleCount,
		Start:       channel.StartContext,
	})
}
