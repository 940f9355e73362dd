package idsp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lambertjamesd/gcadpcm/adpcm"
)

func truncated(what string) error {
	return fmt.Errorf("idsp: reading %s: %w", what, io.ErrUnexpectedEOF)
}

func parseChannel(data []byte) (Channel, error) {
	var header channelHeader

	err := binary.Read(bytes.NewReader(data), binary.BigEndian, &header)

	if err != nil {
		return Channel{}, truncated("channel info")
	}

	var result = Channel{
		SampleCount:    int(header.SampleCount),
		NibbleCount:    int(header.NibbleCount),
		SampleRate:     int(header.SampleRate),
		Looping:        header.Looping != 0,
		StartAddress:   int(header.StartAddress),
		EndAddress:     int(header.EndAddress),
		CurrentAddress: int(header.CurrentAddress),
		Gain:           header.Gain,
		StartContext:   header.StartContext,
		LoopContext:    header.LoopContext,
	}

	result.Coefficients = *adpcm.CoefficientsFromSlice(header.Coefficients[:])

	return result, nil
}

// Parse reads a complete IDSP file. Every offset read from the header is
// checked against the length of data.
func Parse(data []byte) (*Container, error) {
	if len(data) < 4 {
		return nil, truncated("magic")
	}

	if binary.BigEndian.Uint32(data) != IDSP_MAGIC {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidHeader, data[:4])
	}

	var header streamHeader

	err := binary.Read(bytes.NewReader(data), binary.BigEndian, &header)

	if err != nil {
		return nil, truncated("stream header")
	}

	if header.ChannelCount <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidHeader, header.ChannelCount)
	}

	if int(header.HeaderSize) < binary.Size(streamHeader{}) || int(header.ChannelInfoSize) < binary.Size(channelHeader{}) {
		return nil, fmt.Errorf("%w: header size 0x%x channel info size 0x%x", ErrInvalidHeader, header.HeaderSize, header.ChannelInfoSize)
	}

	var channelInfoEnd = int64(header.HeaderSize) + int64(header.ChannelCount)*int64(header.ChannelInfoSize)

	if channelInfoEnd > int64(len(data)) {
		return nil, truncated("channel info")
	}

	var result = Container{
		SampleRate:     int(header.SampleRate),
		SampleCount:    int(header.SampleCount),
		LoopStart:      int(header.LoopStart),
		LoopEnd:        int(header.LoopEnd),
		InterleaveSize: int(header.InterleaveSize),
		Channels:       make([]Channel, header.ChannelCount),
	}

	for i := range result.Channels {
		var offset = int(header.HeaderSize) + i*int(header.ChannelInfoSize)

		channel, err := parseChannel(data[offset : offset+int(header.ChannelInfoSize)])

		if err != nil {
			return nil, err
		}

		result.Channels[i] = channel
	}

	result.Looping = result.Channels[0].Looping

	var audioStart = int64(header.AudioDataOffset)
	var audioLength = int64(header.AudioDataLength) * int64(header.ChannelCount)

	if audioStart < 0 || header.AudioDataLength < 0 || audioStart+audioLength > int64(len(data)) {
		return nil, fmt.Errorf("%w: %d bytes at 0x%x in a %d byte file", ErrInvalidAudioLength, audioLength, audioStart, len(data))
	}

	audio, err := Deinterleave(data[audioStart:audioStart+audioLength], result.InterleaveSize, len(result.Channels), -1)

	if err != nil {
		return nil, err
	}

	for i := range result.Channels {
		result.Channels[i].Audio = audio[i]
	}

	return &result, nil
}

func Read(reader io.Reader) (*Container, error) {
	data, err := io.ReadAll(reader)

	if err != nil {
		return nil, err
	}

	return Parse(data)
}
