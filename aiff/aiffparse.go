package aiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

func readExtended(reader io.Reader) (ExtendedFloat, error) {
	var exponent uint16
	err := binary.Read(reader, binary.BigEndian, &exponent)

	if err != nil {
		return ExtendedFloat{}, err
	}

	var mantissa uint64
	err = binary.Read(reader, binary.BigEndian, &mantissa)

	if err != nil {
		return ExtendedFloat{}, err
	}

	return ExtendedFloat{
		(exponent & 0x8000) != 0,
		exponent & 0x7FFF,
		mantissa,
	}, nil
}

// readPString reads a pascal string padded to an even total length
func readPString(reader io.Reader) (string, error) {
	var length uint8
	err := binary.Read(reader, binary.BigEndian, &length)

	if err != nil {
		return "", err
	}

	var buffer = make([]byte, length)
	_, err = io.ReadFull(reader, buffer)

	if err != nil {
		return "", err
	}

	if length%2 == 0 {
		var padding uint8
		err = binary.Read(reader, binary.BigEndian, &padding)

		if err != nil && err != io.EOF {
			return "", err
		}
	}

	return string(buffer), nil
}

func parseCommonChunk(reader io.Reader, compressed bool) (*CommonChunk, error) {
	var result CommonChunk

	err := binary.Read(reader, binary.BigEndian, &result.NumChannels)

	if err != nil {
		return nil, err
	}

	err = binary.Read(reader, binary.BigEndian, &result.NumSampleFrames)

	if err != nil {
		return nil, err
	}

	err = binary.Read(reader, binary.BigEndian, &result.SampleSize)

	if err != nil {
		return nil, err
	}

	result.SampleRate, err = readExtended(reader)

	if err != nil {
		return nil, err
	}

	if compressed {
		err = binary.Read(reader, binary.BigEndian, &result.CompressionType)

		if err != nil {
			return nil, err
		}

		result.CompressionName, err = readPString(reader)

		if err != nil {
			return nil, err
		}
	}

	return &result, nil
}

func parseSoundDataChunk(data []byte) (*SoundDataChunk, error) {
	if len(data) < 8 {
		return nil, io.ErrUnexpectedEOF
	}

	var result = SoundDataChunk{
		Offset:    binary.BigEndian.Uint32(data[0:]),
		BlockSize: binary.BigEndian.Uint32(data[4:]),
	}

	if int64(result.Offset) > int64(len(data)-8) {
		return nil, fmt.Errorf("%w: sound data offset %d past the end of the chunk", ErrInvalidFile, result.Offset)
	}

	result.WaveformData = data[8+result.Offset:]

	return &result, nil
}

func parseMarkerChunk(reader io.Reader) (*MarkerChunk, error) {
	var result MarkerChunk

	var count uint16
	err := binary.Read(reader, binary.BigEndian, &count)

	if err != nil {
		return nil, err
	}

	for i := 0; i < int(count); i++ {
		var marker Marker

		err = binary.Read(reader, binary.BigEndian, &marker.ID)

		if err != nil {
			return nil, err
		}

		err = binary.Read(reader, binary.BigEndian, &marker.Position)

		if err != nil {
			return nil, err
		}

		marker.Name, err = readPString(reader)

		if err != nil {
			return nil, err
		}

		result.Markers = append(result.Markers, marker)
	}

	return &result, nil
}

func validPlayMode(mode int16) bool {
	return mode == LOOP_NONE || mode == LOOP_FORWARD || mode == LOOP_FORWARD_BACKWARD
}

func parseInstrumentChunk(reader io.Reader) (*InstrumentChunk, error) {
	var result InstrumentChunk
	err := binary.Read(reader, binary.BigEndian, &result)

	if err != nil {
		return nil, err
	}

	if !validPlayMode(result.SustainLoop.PlayMode) || !validPlayMode(result.ReleaseLoop.PlayMode) {
		return nil, fmt.Errorf("unknown loop play mode %d/%d", result.SustainLoop.PlayMode, result.ReleaseLoop.PlayMode)
	}

	return &result, nil
}

// Parse reads an AIFF or AIFC file. Unknown chunks are skipped.
func Parse(data []byte) (*Aiff, error) {
	var result Aiff

	if len(data) < 12 {
		return nil, fmt.Errorf("%w: too short", ErrInvalidFile)
	}

	if binary.BigEndian.Uint32(data[0:]) != FORM_HEADER {
		return nil, fmt.Errorf("%w: file didn't have FORM header", ErrInvalidFile)
	}

	var formType = binary.BigEndian.Uint32(data[8:])

	if formType == AIFC {
		result.Compressed = true
	} else if formType != AIFF {
		return nil, fmt.Errorf("%w: file didn't have AIFF or AIFC type", ErrInvalidFile)
	}

	var position = 12

	for position+8 <= len(data) {
		var id = binary.BigEndian.Uint32(data[position:])
		var chunkSize = int64(binary.BigEndian.Uint32(data[position+4:]))
		var start = position + 8

		if int64(start)+chunkSize > int64(len(data)) {
			return nil, fmt.Errorf("%w: chunk %08x extends past the end of the file", ErrInvalidFile, id)
		}

		var chunk = data[start : start+int(chunkSize)]
		var err error

		switch id {
		case COMM:
			result.Common, err = parseCommonChunk(bytes.NewReader(chunk), result.Compressed)
		case SSND:
			result.SoundData, err = parseSoundDataChunk(chunk)
		case MARK:
			result.Markers, err = parseMarkerChunk(bytes.NewReader(chunk))
		case INST:
			result.Instrument, err = parseInstrumentChunk(bytes.NewReader(chunk))
		}

		if err != nil {
			return nil, fmt.Errorf("%w: chunk %08x: %v", ErrInvalidFile, id, err)
		}

		// chunks are padded to an even length
		position = start + int(chunkSize) + int(chunkSize&1)
	}

	if result.Common == nil {
		return nil, fmt.Errorf("%w: missing COMM chunk", ErrInvalidFile)
	}

	return &result, nil
}

func Read(reader io.Reader) (*Aiff, error) {
	data, err := io.ReadAll(reader)

	if err != nil {
		return nil, err
	}

	return Parse(data)
}
