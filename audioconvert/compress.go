package audioconvert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lambertjamesd/gcadpcm/adpcm"
	"github.com/lambertjamesd/gcadpcm/idsp"
	"github.com/lambertjamesd/gcadpcm/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type EncodeOptions struct {
	InterleaveSize int
	// nil for a one shot sound
	Loop *Loop
	// used for every channel when set, otherwise each channel gets its own
	// table from CalculateCoefficients
	Coefficients *adpcm.Coefficients
	// channels encoded at once, values below 1 mean one
	Workers int
}

type encodedChannel struct {
	audio        []byte
	coefficients *adpcm.Coefficients
}

func encodeChannel(pcm []int16, coefficients *adpcm.Coefficients) encodedChannel {
	if coefficients == nil {
		coefficients = adpcm.CalculateCoefficients(pcm)
	}

	return encodedChannel{
		audio:        adpcm.Encode(pcm, coefficients),
		coefficients: coefficients,
	}
}

// EncodeContainer compresses every channel and packs the result into an IDSP
// container. Channels are independent so they are encoded concurrently.
func EncodeContainer(ctx context.Context, pcm *PCM, options EncodeOptions) (*idsp.Container, error) {
	err := pcm.validate()

	if err != nil {
		return nil, err
	}

	var sampleCount = pcm.SampleCount()

	if options.Loop != nil {
		err = options.Loop.validate(sampleCount)

		if err != nil {
			return nil, err
		}
	}

	if options.InterleaveSize < 0 {
		return nil, fmt.Errorf("%w: interleave size %d", ErrUnsupportedFormat, options.InterleaveSize)
	}

	var results = make([]encodedChannel, len(pcm.Channels))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(options.Workers, 1))

	for i, channel := range pcm.Channels {
		i, channel := i, channel
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			results[i] = encodeChannel(channel, options.Coefficients)

			logger.Log.Debug("encoded channel",
				zap.Int("channel", i),
				zap.Int("samples", len(channel)),
				zap.Int("bytes", len(results[i].audio)),
			)

			return nil
		})
	}

	err = group.Wait()

	if err != nil {
		return nil, err
	}

	var result = idsp.Container{
		SampleRate:     pcm.SampleRate,
		SampleCount:    sampleCount,
		InterleaveSize: options.InterleaveSize,
	}

	if options.Loop != nil {
		result.Looping = true
		result.LoopStart = options.Loop.Start
		result.LoopEnd = options.Loop.End
	}

	for _, encoded := range results {
		result.AddChannel(encoded.audio, encoded.coefficients)
	}

	return &result, nil
}

// DecodeContainer decodes every channel of the container back to PCM
func DecodeContainer(container *idsp.Container) (*PCM, error) {
	if len(container.Channels) == 0 {
		return nil, fmt.Errorf("%w: container has no channels", ErrUnsupportedFormat)
	}

	var result = PCM{
		SampleRate: container.SampleRate,
		Channels:   make([][]int16, len(container.Channels)),
	}

	for i := range container.Channels {
		var channel = &container.Channels[i]

		if channel.SampleCount != container.SampleCount {
			logger.Log.Warn("channel sample count differs from the stream",
				zap.Int("channel", i),
				zap.Int("channelSamples", channel.SampleCount),
				zap.Int("streamSamples", container.SampleCount),
			)
		}

		var decoded = channel.Decode()

		// channels are trimmed or padded to the stream length
		result.Channels[i] = make([]int16, max(container.SampleCount, 0))
		copy(result.Channels[i], decoded)
	}

	return &result, nil
}

// LoopOf returns the loop stored in a container or nil if it does not loop
func LoopOf(container *idsp.Container) *Loop {
	if !container.Looping {
		return nil
	}

	return &Loop{Start: container.LoopStart, End: container.LoopEnd}
}

// TableFilename is where a coefficient table for soundFile is looked for
func TableFilename(soundFile string) string {
	return strings.TrimSuffix(soundFile, filepath.Ext(soundFile)) + ".table"
}

func ReadCoefficientTable(filename string) (*adpcm.Coefficients, error) {
	file, err := os.Open(filename)

	if err != nil {
		return nil, err
	}

	defer file.Close()

	coefficients, err := adpcm.ParseCoefficients(file)

	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return coefficients, nil
}

func WriteCoefficientTable(filename string, coefficients *adpcm.Coefficients) error {
	file, err := createFile(filename)

	if err != nil {
		return err
	}

	defer file.Close()

	return coefficients.Serialize(file)
}

// FindCoefficientTable loads the table next to soundFile if there is one.
// Returns nil without an error when no table exists. Any other failure to
// read the table is returned.
func FindCoefficientTable(soundFile string) (*adpcm.Coefficients, error) {
	coefficients, err := ReadCoefficientTable(TableFilename(soundFile))

	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	return coefficients, err
}
