package main

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/lambertjamesd/gcadpcm/adpcm"
	"github.com/lambertjamesd/gcadpcm/audioconvert"
	"github.com/lambertjamesd/gcadpcm/config"
	"github.com/lambertjamesd/gcadpcm/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type globalFlags struct {
	envFile  string
	logLevel string
	cfg      *config.Config
}

type encodeFlags struct {
	interleaveSize int
	loopStart      int
	loopEnd        int
	table          string
}

func warnExtension(filename string, ext string) {
	if !strings.EqualFold(filepath.Ext(filename), ext) {
		logger.Log.Warn("unexpected file extension", zap.String("file", filename), zap.String("expected", ext))
	}
}

// signalToNoise compares decoded output with the original samples in dB
func signalToNoise(original *audioconvert.PCM, decoded *audioconvert.PCM) float64 {
	var signal = 0.0
	var noise = 0.0

	for c, channel := range original.Channels {
		for i, sample := range channel {
			var diff = float64(sample) - float64(decoded.Channels[c][i])
			signal += float64(sample) * float64(sample)
			noise += diff * diff
		}
	}

	if noise == 0 {
		return math.Inf(1)
	}

	return 10 * math.Log10(signal/noise)
}

func (flags *encodeFlags) loop(cmd *cobra.Command) (*audioconvert.Loop, error) {
	var hasStart = cmd.Flags().Changed("loop-start")
	var hasEnd = cmd.Flags().Changed("loop-end")

	if !hasStart && !hasEnd {
		return nil, nil
	}

	if !hasEnd {
		return nil, fmt.Errorf("%w: --loop-start requires --loop-end", audioconvert.ErrInvalidLoop)
	}

	return &audioconvert.Loop{Start: flags.loopStart, End: flags.loopEnd}, nil
}

func (flags *encodeFlags) coefficients(input string) (*adpcm.Coefficients, error) {
	if flags.table != "" {
		return audioconvert.ReadCoefficientTable(flags.table)
	}

	coefficients, err := audioconvert.FindCoefficientTable(input)

	if coefficients != nil {
		logger.Log.Info("using coefficient table", zap.String("file", audioconvert.TableFilename(input)))
	}

	return coefficients, err
}

func newEncodeCommand(global *globalFlags) *cobra.Command {
	var flags encodeFlags

	var cmd = &cobra.Command{
		Use:   "encode <input.wav|input.aiff> <output.idsp>",
		Short: "Encode a sound as DSP ADPCM in an IDSP container.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			output := args[1]
			warnExtension(output, ".idsp")

			loop, err := flags.loop(cmd)

			if err != nil {
				return err
			}

			pcm, fileLoop, err := audioconvert.ReadSound(input)

			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}

			if loop == nil {
				loop = fileLoop
			}

			coefficients, err := flags.coefficients(input)

			if err != nil {
				return err
			}

			var interleaveSize = global.cfg.InterleaveSize

			if cmd.Flags().Changed("interleave") {
				interleaveSize = flags.interleaveSize
			}

			container, err := audioconvert.EncodeContainer(cmd.Context(), pcm, audioconvert.EncodeOptions{
				InterleaveSize: interleaveSize,
				Loop:           loop,
				Coefficients:   coefficients,
				Workers:        global.cfg.Workers,
			})

			if err != nil {
				return err
			}

			decoded, err := audioconvert.DecodeContainer(container)

			if err != nil {
				return err
			}

			logger.Log.Info("encoded",
				zap.String("file", output),
				zap.Int("channels", len(container.Channels)),
				zap.Int("samples", container.SampleCount),
				zap.Int("sampleRate", container.SampleRate),
				zap.Float64("snr", signalToNoise(pcm, decoded)),
			)

			return audioconvert.WriteContainerFile(output, container)
		},
	}

	f := cmd.Flags()
	f.IntVar(&flags.interleaveSize, "interleave", 0, "interleave block size in bytes, 0 stores each channel in one block")
	f.IntVar(&flags.loopStart, "loop-start", 0, "first sample of the loop")
	f.IntVar(&flags.loopEnd, "loop-end", 0, "sample after the last sample of the loop")
	f.StringVar(&flags.table, "table", "", "coefficient table to encode with instead of designing one")

	return cmd
}

func newDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <input.idsp> <output.wav|output.aiff>",
		Short: "Decode an IDSP container to a wav or aiff file.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			output := args[1]
			container, err := audioconvert.ReadContainerFile(input)

			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}

			pcm, err := audioconvert.DecodeContainer(container)

			if err != nil {
				return err
			}

			logger.Log.Info("decoded",
				zap.String("file", output),
				zap.Int("channels", len(pcm.Channels)),
				zap.Int("samples", pcm.SampleCount()),
			)

			return audioconvert.WriteSound(output, pcm, audioconvert.LoopOf(container))
		},
	}
}

func newTableCommand() *cobra.Command {
	var channel int

	var cmd = &cobra.Command{
		Use:   "table <input.wav|input.aiff|input.idsp> <output.table>",
		Short: "Write the coefficient table for one channel of a sound.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			output := args[1]

			var coefficients *adpcm.Coefficients

			if strings.EqualFold(filepath.Ext(input), ".idsp") {
				container, err := audioconvert.ReadContainerFile(input)

				if err != nil {
					return fmt.Errorf("%s: %w", input, err)
				}

				if channel < 0 || channel >= len(container.Channels) {
					return fmt.Errorf("%s has %d channels, no channel %d", input, len(container.Channels), channel)
				}

				coefficients = &container.Channels[channel].Coefficients
			} else {
				pcm, _, err := audioconvert.ReadSound(input)

				if err != nil {
					return fmt.Errorf("%s: %w", input, err)
				}

				if channel < 0 || channel >= len(pcm.Channels) {
					return fmt.Errorf("%s has %d channels, no channel %d", input, len(pcm.Channels), channel)
				}

				coefficients = adpcm.CalculateCoefficients(pcm.Channels[channel])
			}

			logger.Log.Info("writing table", zap.String("file", output), zap.Int("channel", channel))

			return audioconvert.WriteCoefficientTable(output, coefficients)
		},
	}

	cmd.Flags().IntVar(&channel, "channel", 0, "channel to take the table from")

	return cmd
}

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <input.idsp>",
		Short: "Print the header of an IDSP container.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := audioconvert.ReadContainerFile(args[0])

			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "channels:    %d\n", len(container.Channels))
			fmt.Fprintf(out, "sample rate: %d\n", container.SampleRate)
			fmt.Fprintf(out, "samples:     %d\n", container.SampleCount)
			fmt.Fprintf(out, "interleave:  %d\n", container.InterleaveSize)

			if container.Looping {
				fmt.Fprintf(out, "loop:        %d-%d\n", container.LoopStart, container.LoopEnd)
			} else {
				fmt.Fprintf(out, "loop:        none\n")
			}

			for i, channel := range container.Channels {
				fmt.Fprintf(out, "channel %d: %d bytes, addresses 0x%x-0x%x, gain %d\n",
					i, len(channel.Audio), channel.StartAddress, channel.EndAddress, channel.Gain)

				for p, predictor := range channel.Coefficients {
					fmt.Fprintf(out, "  predictor %d: %6d %6d\n", p, predictor.Coef1, predictor.Coef2)
				}
			}

			return nil
		},
	}
}

func newRootCommand() *cobra.Command {
	var global globalFlags

	var root = &cobra.Command{
		Use:           "gcadpcm",
		Short:         "gcadpcm encodes and decodes GameCube DSP ADPCM audio.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(global.envFile)

			if err != nil {
				return err
			}

			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = global.logLevel
			}

			global.cfg = cfg

			return logger.Init(cfg.LogLevel, cfg.Mode)
		},
	}

	fglobal := pflag.NewFlagSet("global", pflag.ExitOnError)
	fglobal.StringVar(&global.envFile, "env", ".env", "environment file with GCADPCM_* settings")
	fglobal.StringVar(&global.logLevel, "log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().AddFlagSet(fglobal)

	root.AddCommand(
		newEncodeCommand(&global),
		newDecodeCommand(),
		newTableCommand(),
		newInfoCommand(),
	)

	return root
}

func execute(ctx context.Context, args []string) error {
	var root = newRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
