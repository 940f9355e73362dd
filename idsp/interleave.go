package idsp

import (
	"fmt"

	"github.com/lambertjamesd/gcadpcm/adpcm"
)

type blockLayout struct {
	interleaveSize  int
	inBlockCount    int
	outBlockCount   int
	lastInputBlock  int
	lastOutputBlock int
}

func newBlockLayout(inputSize int, outputSize int, interleaveSize int) blockLayout {
	if interleaveSize <= 0 {
		interleaveSize = max(inputSize, outputSize, 1)
	}

	var result = blockLayout{
		interleaveSize: interleaveSize,
		inBlockCount:   adpcm.DivideByRoundUp(inputSize, interleaveSize),
		outBlockCount:  adpcm.DivideByRoundUp(outputSize, interleaveSize),
	}

	result.lastInputBlock = inputSize - (result.inBlockCount-1)*interleaveSize
	result.lastOutputBlock = outputSize - (result.outBlockCount-1)*interleaveSize

	return result
}

func (layout *blockLayout) blocksToCopy() int {
	return min(layout.inBlockCount, layout.outBlockCount)
}

func (layout *blockLayout) inputBlockSize(block int) int {
	if block == layout.inBlockCount-1 {
		return layout.lastInputBlock
	}

	return layout.interleaveSize
}

func (layout *blockLayout) outputBlockSize(block int) int {
	if block == layout.outBlockCount-1 {
		return layout.lastOutputBlock
	}

	return layout.interleaveSize
}

// Interleave writes the channels as alternating blocks of interleaveSize
// bytes. Each channel occupies outputSize bytes of the result, truncated or
// zero padded as needed. An outputSize below zero keeps the input size.
func Interleave(inputs [][]byte, interleaveSize int, outputSize int) ([]byte, error) {
	if len(inputs) == 0 {
		return []byte{}, nil
	}

	var inputSize = len(inputs[0])

	for i, input := range inputs {
		if len(input) != inputSize {
			return nil, fmt.Errorf("%w: channel %d has %d bytes, expected %d", ErrInvalidAudioLength, i, len(input), inputSize)
		}
	}

	if outputSize < 0 {
		outputSize = inputSize
	}

	var inputCount = len(inputs)
	var output = make([]byte, outputSize*inputCount)
	var layout = newBlockLayout(inputSize, outputSize, interleaveSize)

	for b := 0; b < layout.blocksToCopy(); b++ {
		var outBlockSize = layout.outputBlockSize(b)
		var bytesToCopy = min(layout.inputBlockSize(b), outBlockSize)
		var blockStart = layout.interleaveSize * b

		for i, input := range inputs {
			var outStart = blockStart*inputCount + outBlockSize*i
			copy(output[outStart:outStart+bytesToCopy], input[blockStart:blockStart+bytesToCopy])
		}
	}

	return output, nil
}

// Deinterleave splits interleaved data back into channelCount channels of
// outputSize bytes each. An outputSize below zero uses the size each channel
// has in the input.
func Deinterleave(data []byte, interleaveSize int, channelCount int, outputSize int) ([][]byte, error) {
	if channelCount <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidAudioLength, channelCount)
	}

	if len(data)%channelCount != 0 {
		return nil, fmt.Errorf("%w: %d bytes do not divide into %d channels", ErrInvalidAudioLength, len(data), channelCount)
	}

	var inputSize = len(data) / channelCount

	if outputSize < 0 {
		outputSize = inputSize
	}

	var outputs = make([][]byte, channelCount)

	for i := range outputs {
		outputs[i] = make([]byte, outputSize)
	}

	var layout = newBlockLayout(inputSize, outputSize, interleaveSize)
	var inPosition = 0

	for b := 0; b < layout.blocksToCopy(); b++ {
		var inBlockSize = layout.inputBlockSize(b)
		var bytesToCopy = min(inBlockSize, layout.outputBlockSize(b))
		var outStart = layout.interleaveSize * b

		for _, output := range outputs {
			copy(output[outStart:outStart+bytesToCopy], data[inPosition:inPosition+bytesToCopy])
			inPosition += inBlockSize
		}
	}

	return outputs, nil
}
