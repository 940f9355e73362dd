package audioconvert

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lambertjamesd/gcadpcm/aiff"
	"github.com/lambertjamesd/gcadpcm/idsp"
	wav "github.com/youpy/go-wav"
)

func EnsureDirectory(filename string) error {
	var dir = filepath.Dir(filename)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0775)
	}

	return nil
}

func createFile(filename string) (*os.File, error) {
	err := EnsureDirectory(filename)

	if err != nil {
		return nil, err
	}

	return os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0664)
}

// WriteWav writes 16 bit PCM. Only mono and stereo can be written.
func WriteWav(writer io.Writer, pcm *PCM) error {
	err := pcm.validate()

	if err != nil {
		return err
	}

	if len(pcm.Channels) > 2 {
		return fmt.Errorf("%w: wav output supports 1 or 2 channels, got %d", ErrUnsupportedFormat, len(pcm.Channels))
	}

	var sampleCount = pcm.SampleCount()
	var samples = make([]wav.Sample, sampleCount)

	for c, channel := range pcm.Channels {
		for i, value := range channel {
			samples[i].Values[c] = int(value)
		}
	}

	var wavWriter = wav.NewWriter(writer, uint32(sampleCount), uint16(len(pcm.Channels)), uint32(pcm.SampleRate), 16)

	return wavWriter.WriteSamples(samples)
}

func WriteWavFile(filename string, pcm *PCM) error {
	file, err := createFile(filename)

	if err != nil {
		return err
	}

	defer file.Close()

	return WriteWav(file, pcm)
}

// WriteAiff writes 16 bit PCM with loop stored as the sustain loop when it
// is not nil
func WriteAiff(writer io.Writer, pcm *PCM, loop *Loop) error {
	err := pcm.validate()

	if err != nil {
		return err
	}

	var aiffFile = aiff.FromSamples(pcm.Channels, pcm.SampleRate)

	if loop != nil {
		aiffFile.SetSustainLoop(loop.Start, loop.End)
	}

	return aiffFile.Serialize(writer)
}

func WriteAiffFile(filename string, pcm *PCM, loop *Loop) error {
	file, err := createFile(filename)

	if err != nil {
		return err
	}

	defer file.Close()

	return WriteAiff(file, pcm, loop)
}

func WriteContainerFile(filename string, container *idsp.Container) error {
	file, err := createFile(filename)

	if err != nil {
		return err
	}

	defer file.Close()

	return container.Write(file)
}

// WriteSound picks the output format from the extension of filename. Loops
// are only kept by AIFF.
func WriteSound(filename string, pcm *PCM, loop *Loop) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		return WriteWavFile(filename, pcm)
	case ".aiff", ".aif":
		return WriteAiffFile(filename, pcm, loop)
	}

	return fmt.Errorf("%w: cannot write %s", ErrUnsupportedFormat, filename)
}
