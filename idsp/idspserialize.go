package idsp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

func writePadding(buffer *bytes.Buffer, size int) {
	for buffer.Len() < size {
		buffer.WriteByte(0)
	}
}

func (channel *Channel) header() channelHeader {
	var result = channelHeader{
		SampleCount:    int32(channel.SampleCount),
		NibbleCount:    int32(channel.NibbleCount),
		SampleRate:     int32(channel.SampleRate),
		StartAddress:   int32(channel.StartAddress),
		EndAddress:     int32(channel.EndAddress),
		CurrentAddress: int32(channel.CurrentAddress),
		Coefficients:   channel.Coefficients.Flatten(),
		Gain:           channel.Gain,
		StartContext:   channel.StartContext,
		LoopContext:    channel.LoopContext,
	}

	if channel.Looping {
		result.Looping = 1
	}

	return result
}

// Serialize writes the container with a 0x40 byte stream header, 0x60 bytes
// per channel and the audio interleaved after that. Every channel must hold
// the same number of bytes.
func (container *Container) Serialize() ([]byte, error) {
	var channelCount = len(container.Channels)

	if channelCount == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidHeader)
	}

	var audio = make([][]byte, channelCount)

	for i := range container.Channels {
		audio[i] = container.Channels[i].Audio
	}

	interleaved, err := Interleave(audio, container.InterleaveSize, -1)

	if err != nil {
		return nil, err
	}

	var audioOffset = HEADER_SIZE + channelCount*CHANNEL_INFO_SIZE

	var header = streamHeader{
		Magic:           IDSP_MAGIC,
		ChannelCount:    int32(channelCount),
		SampleRate:      int32(container.SampleRate),
		SampleCount:     int32(container.SampleCount),
		LoopStart:       int32(container.LoopStart),
		LoopEnd:         int32(container.LoopEnd),
		InterleaveSize:  int32(container.InterleaveSize),
		HeaderSize:      HEADER_SIZE,
		ChannelInfoSize: CHANNEL_INFO_SIZE,
		AudioDataOffset: int32(audioOffset),
		AudioDataLength: int32(len(audio[0])),
	}

	var result bytes.Buffer
	result.Grow(audioOffset + len(interleaved))

	err = binary.Write(&result, binary.BigEndian, &header)

	if err != nil {
		return nil, err
	}

	writePadding(&result, HEADER_SIZE)

	for i := range container.Channels {
		var info = container.Channels[i].header()

		err = binary.Write(&result, binary.BigEndian, &info)

		if err != nil {
			return nil, err
		}

		writePadding(&result, HEADER_SIZE+(i+1)*CHANNEL_INFO_SIZE)
	}

	result.Write(interleaved)

	return result.Bytes(), nil
}

func (container *Container) Write(writer io.Writer) error {
	data, err := container.Serialize()

	if err != nil {
		return err
	}

	_, err = writer.Write(data)

	return err
}
