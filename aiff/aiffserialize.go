package aiff

import (
	"bytes"
	"encoding/binary"
	"io"
)

type chunkData struct {
	header uint32
	data   []byte
}

func writeExtended(writer io.Writer, value ExtendedFloat) {
	var exponent = value.Exponent

	if value.Sign {
		exponent |= 0x8000
	}

	binary.Write(writer, binary.BigEndian, &exponent)
	binary.Write(writer, binary.BigEndian, &value.Mantissa)
}

func writePString(writer *bytes.Buffer, value string) {
	writer.WriteByte(uint8(len(value)))
	writer.WriteString(value)

	if len(value)%2 == 0 {
		writer.WriteByte(0)
	}
}

func (commonChunk *CommonChunk) serialize(compressed bool) []byte {
	var result bytes.Buffer

	binary.Write(&result, binary.BigEndian, &commonChunk.NumChannels)
	binary.Write(&result, binary.BigEndian, &commonChunk.NumSampleFrames)
	binary.Write(&result, binary.BigEndian, &commonChunk.SampleSize)
	writeExtended(&result, commonChunk.SampleRate)

	if compressed {
		binary.Write(&result, binary.BigEndian, &commonChunk.CompressionType)
		writePString(&result, commonChunk.CompressionName)
	}

	return result.Bytes()
}

func (markerChunk *MarkerChunk) serialize() []byte {
	var result bytes.Buffer

	var count = uint16(len(markerChunk.Markers))
	binary.Write(&result, binary.BigEndian, &count)

	for _, marker := range markerChunk.Markers {
		binary.Write(&result, binary.BigEndian, &marker.ID)
		binary.Write(&result, binary.BigEndian, &marker.Position)
		writePString(&result, marker.Name)
	}

	return result.Bytes()
}

func (instrumentChunk *InstrumentChunk) serialize() []byte {
	var result bytes.Buffer
	binary.Write(&result, binary.BigEndian, instrumentChunk)
	return result.Bytes()
}

func (soundDataChunk *SoundDataChunk) serialize() []byte {
	var result bytes.Buffer

	binary.Write(&result, binary.BigEndian, &soundDataChunk.Offset)
	binary.Write(&result, binary.BigEndian, &soundDataChunk.BlockSize)

	for i := uint32(0); i < soundDataChunk.Offset; i++ {
		result.WriteByte(0)
	}

	result.Write(soundDataChunk.WaveformData)

	return result.Bytes()
}

func (aiff *Aiff) chunks() []chunkData {
	var result []chunkData

	if aiff.Compressed {
		var version = make([]byte, 4)
		binary.BigEndian.PutUint32(version, AIFC_VERSION_1)
		result = append(result, chunkData{FVER, version})
	}

	if aiff.Common != nil {
		result = append(result, chunkData{COMM, aiff.Common.serialize(aiff.Compressed)})
	}

	if aiff.Markers != nil {
		result = append(result, chunkData{MARK, aiff.Markers.serialize()})
	}

	if aiff.Instrument != nil {
		result = append(result, chunkData{INST, aiff.Instrument.serialize()})
	}

	if aiff.SoundData != nil {
		result = append(result, chunkData{SSND, aiff.SoundData.serialize()})
	}

	return result
}

func (aiff *Aiff) Serialize(writer io.Writer) error {
	var chunks = aiff.chunks()

	var formType uint32 = AIFF

	if aiff.Compressed {
		formType = AIFC
	}

	// form type plus a header and padding for every chunk
	var totalLength uint32 = 4

	for _, chunk := range chunks {
		totalLength += 8 + uint32(len(chunk.data)+len(chunk.data)%2)
	}

	var body bytes.Buffer

	var header uint32 = FORM_HEADER
	binary.Write(&body, binary.BigEndian, &header)
	binary.Write(&body, binary.BigEndian, &totalLength)
	binary.Write(&body, binary.BigEndian, &formType)

	for _, chunk := range chunks {
		var size = uint32(len(chunk.data))
		binary.Write(&body, binary.BigEndian, &chunk.header)
		binary.Write(&body, binary.BigEndian, &size)
		body.Write(chunk.data)

		if size%2 == 1 {
			body.WriteByte(0)
		}
	}

	_, err := writer.Write(body.Bytes())

	return err
}

// FromSamples builds an uncompressed 16 bit AIFF from one slice per channel
func FromSamples(channels [][]int16, sampleRate int) *Aiff {
	var frameCount = 0

	if len(channels) > 0 {
		frameCount = len(channels[0])
	}

	var data = make([]byte, 0, frameCount*len(channels)*2)

	for i := 0; i < frameCount; i++ {
		for _, channel := range channels {
			data = binary.BigEndian.AppendUint16(data, uint16(channel[i]))
		}
	}

	return &Aiff{
		Common: &CommonChunk{
			NumChannels:     int16(len(channels)),
			NumSampleFrames: uint32(frameCount),
			SampleSize:      16,
			SampleRate:      ExtendedFromF64(float64(sampleRate)),
		},
		SoundData: &SoundDataChunk{WaveformData: data},
	}
}

// SetSustainLoop marks [start, end) as a forward sustain loop
func (aiff *Aiff) SetSustainLoop(start int, end int) {
	aiff.Markers = &MarkerChunk{
		Markers: []Marker{
			{ID: 1, Position: uint32(start), Name: "start"},
			{ID: 2, Position: uint32(end), Name: "end"},
		},
	}

	aiff.Instrument = &InstrumentChunk{
		BaseNote:     60,
		HighNote:     127,
		HighVelocity: 127,
		SustainLoop:  Loop{PlayMode: LOOP_FORWARD, BeginLoop: 1, EndLoop: 2},
	}
}
