package audioconvert

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("audioconvert: unsupported format")
	ErrInvalidLoop       = errors.New("audioconvert: invalid loop")
)

// PCM is 16 bit audio split into one slice per channel
type PCM struct {
	SampleRate int
	Channels   [][]int16
}

// Loop marks the samples in [Start, End) as repeating
type Loop struct {
	Start int
	End   int
}

func (pcm *PCM) SampleCount() int {
	if len(pcm.Channels) == 0 {
		return 0
	}

	return len(pcm.Channels[0])
}

func (pcm *PCM) validate() error {
	if len(pcm.Channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrUnsupportedFormat)
	}

	if pcm.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, pcm.SampleRate)
	}

	var sampleCount = pcm.SampleCount()

	for i, channel := range pcm.Channels {
		if len(channel) != sampleCount {
			return fmt.Errorf("%w: channel %d has %d samples, expected %d", ErrUnsupportedFormat, i, len(channel), sampleCount)
		}
	}

	return nil
}

func (loop *Loop) validate(sampleCount int) error {
	if loop.Start < 0 || loop.End <= loop.Start || loop.End > sampleCount {
		return fmt.Errorf("%w: [%d, %d) in %d samples", ErrInvalidLoop, loop.Start, loop.End, sampleCount)
	}

	return nil
}
