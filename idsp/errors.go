package idsp

import "errors"

var (
	// ErrInvalidHeader is returned when the magic or a header size field is wrong
	ErrInvalidHeader = errors.New("idsp: invalid header")

	// ErrInvalidAudioLength is returned when the audio payload does not match
	// the channel layout or extends beyond the end of the file
	ErrInvalidAudioLength = errors.New("idsp: invalid audio length")
)
