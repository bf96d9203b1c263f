package archive

import (
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// A Codec selects the compression method used for archive entries.
type Codec string

const (
	Deflate Codec = "deflate"
	Zstd    Codec = "zstd"
	Snappy  Codec = "snappy"
	Store   Codec = "store"
)

// Zip method id for snappy compressed entries. Ids above 0xFF00 are not
// assigned by the zip specification.
const methodSnappy uint16 = 0xFF5A

// Parse a codec name. An empty name selects Deflate.
func ParseCodec(name string) (Codec, error) {
	switch Codec(strings.ToLower(strings.TrimSpace(name))) {
	case Deflate, "":
		return Deflate, nil
	case Zstd:
		return Zstd, nil
	case Snappy:
		return Snappy, nil
	case Store:
		return Store, nil
	}
	return "", unsupportedCodec(name)
}

// Get the zip method for the codec.
func (c Codec) method() (uint16, error) {
	switch c {
	case Deflate:
		return zip.Deflate, nil
	case Zstd:
		return zstd.ZipMethodWinZip, nil
	case Snappy:
		return methodSnappy, nil
	case Store:
		return zip.Store, nil
	}
	return 0, unsupportedCodec(string(c))
}

// Map a zip method back to a codec.
func codecForMethod(method uint16) (Codec, error) {
	switch method {
	case zip.Deflate:
		return Deflate, nil
	case zstd.ZipMethodWinZip:
		return Zstd, nil
	case methodSnappy:
		return Snappy, nil
	case zip.Store:
		return Store, nil
	}
	return "", unsupportedMethod(method)
}

func registerCompressors(zw *zip.Writer) {
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor(zstd.WithEncoderLevel(zstd.SpeedBetterCompression)))
	zw.RegisterCompressor(methodSnappy, func(w io.Writer) (io.WriteCloser, error) {
		return snappy.NewBufferedWriter(w), nil
	})
}

func registerDecompressors(zr *zip.Reader) {
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	zr.RegisterDecompressor(methodSnappy, func(r io.Reader) io.ReadCloser {
		return io.NopCloser(snappy.NewReader(r))
	})
}
