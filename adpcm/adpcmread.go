package adpcm

import (
	"encoding/binary"
	"io"
)

// ReadCoefficients reads 16 big endian coefficients in the order used by DSP
// headers
func ReadCoefficients(reader io.Reader) (*Coefficients, error) {
	var values [COEFFICIENT_COUNT]int16

	err := binary.Read(reader, binary.BigEndian, &values)

	if err != nil {
		return nil, err
	}

	return CoefficientsFromSlice(values[:]), nil
}

func (coefficients *Coefficients) Write(writer io.Writer) error {
	var values = coefficients.Flatten()
	return binary.Write(writer, binary.BigEndian, &values)
}

func ReadContext(reader io.Reader) (Context, error) {
	var result Context
	err := binary.Read(reader, binary.BigEndian, &result)
	return result, err
}

func (context *Context) Write(writer io.Writer) error {
	return binary.Write(writer, binary.BigEndian, context)
}
