package audioconvert

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lambertjamesd/gcadpcm/aiff"
	"github.com/lambertjamesd/gcadpcm/idsp"
	wav "github.com/youpy/go-wav"
)

const FORMAT_PCM = 1

// ReadWav reads 16 bit mono or stereo PCM
func ReadWav(reader io.Reader) (*PCM, error) {
	data, err := io.ReadAll(reader)

	if err != nil {
		return nil, err
	}

	var wavReader = wav.NewReader(bytes.NewReader(data))

	format, err := wavReader.Format()

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	if format.AudioFormat != FORMAT_PCM {
		return nil, fmt.Errorf("%w: wav should be pcm, got format %d", ErrUnsupportedFormat, format.AudioFormat)
	}

	if format.BitsPerSample != 16 {
		return nil, fmt.Errorf("%w: wav should have 16 bits per sample, got %d", ErrUnsupportedFormat, format.BitsPerSample)
	}

	if format.NumChannels != 1 && format.NumChannels != 2 {
		return nil, fmt.Errorf("%w: wav should have 1 or 2 channels, got %d", ErrUnsupportedFormat, format.NumChannels)
	}

	var result = PCM{
		SampleRate: int(format.SampleRate),
		Channels:   make([][]int16, format.NumChannels),
	}

	for {
		samples, err := wavReader.ReadSamples()

		for _, sample := range samples {
			for c := range result.Channels {
				result.Channels[c] = append(result.Channels[c], int16(sample.Values[c]))
			}
		}

		if err == io.EOF || (err == nil && len(samples) == 0) {
			break
		}

		if err != nil {
			return nil, err
		}
	}

	for c := range result.Channels {
		if result.Channels[c] == nil {
			result.Channels[c] = []int16{}
		}
	}

	return &result, nil
}

func ReadWavFile(filename string) (*PCM, error) {
	file, err := os.Open(filename)

	if err != nil {
		return nil, err
	}

	defer file.Close()

	return ReadWav(file)
}

func ReadContainerFile(filename string) (*idsp.Container, error) {
	file, err := os.Open(filename)

	if err != nil {
		return nil, err
	}

	defer file.Close()

	return idsp.Read(file)
}

// ReadAiff reads 16 bit PCM from an AIFF or uncompressed AIFC file. The
// sustain loop is returned if the file has one.
func ReadAiff(reader io.Reader) (*PCM, *Loop, error) {
	aiffFile, err := aiff.Read(reader)

	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	channels, err := aiffFile.Samples()

	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	var result = PCM{
		SampleRate: aiffFile.SampleRate(),
		Channels:   channels,
	}

	start, end, ok := aiffFile.SustainLoop()

	if !ok {
		return &result, nil, nil
	}

	return &result, &Loop{Start: start, End: end}, nil
}

func ReadAiffFile(filename string) (*PCM, *Loop, error) {
	file, err := os.Open(filename)

	if err != nil {
		return nil, nil, err
	}

	defer file.Close()

	return ReadAiff(file)
}

// ReadSound loads PCM from a .wav or .aiff file or decodes it from an .idsp
// file. The loop is nil when the file does not store one.
func ReadSound(filename string) (*PCM, *Loop, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		pcm, err := ReadWavFile(filename)
		return pcm, nil, err
	case ".aiff", ".aif", ".aifc":
		return ReadAiffFile(filename)
	case ".idsp":
		container, err := ReadContainerFile(filename)

		if err != nil {
			return nil, nil, err
		}

		pcm, err := DecodeContainer(container)

		if err != nil {
			return nil, nil, err
		}

		return pcm, LoopOf(container), nil
	}

	return nil, nil, fmt.Errorf("%w: not a supported sound file %s", ErrUnsupportedFormat, filename)
}
