package archive

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedCodec = errors.New("archive: unsupported codec")
	ErrInvalidArchive   = errors.New("archive: invalid archive")
)

func unsupportedCodec(name string) error {
	return fmt.Errorf("%w %q", ErrUnsupportedCodec, name)
}

func unsupportedMethod(method uint16) error {
	return fmt.Errorf("%w: zip method %d", ErrUnsupportedCodec, method)
}

func invalidArchive(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArchive, fmt.Sprintf(format, args...))
}
