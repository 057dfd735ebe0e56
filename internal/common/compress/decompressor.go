package compress

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/pkg/errors"
)

// Decompressor is a fast, single threaded decompressor.
// This type allows us to reuse buffers etc for performance
type Decompressor interface {
	// Decompress decompresses the byte array
	Decompress(b []byte) ([]byte, error)
}

// NoOpDecompressor is a Decompressor that does nothing.  Useful for tests.
type NoOpDecompressor struct{}

func (c *NoOpDecompressor) Decompress(b []byte) ([]byte, error) {
	return b, nil
}

// ZlibDecompressor decompresses Zlib. Input without a zlib header is assumed to have been stored uncompressed
// by a ZlibCompressor and is returned as-is.
type ZlibDecompressor struct {
	outputBuffer *bytes.Buffer
	reader       io.ReadCloser
}

func NewZlibDecompressor() *ZlibDecompressor {
	return &ZlibDecompressor{
		outputBuffer: &bytes.Buffer{},
	}
}

func (d *ZlibDecompressor) Decompress(b []byte) ([]byte, error) {
	if !hasZlibHeader(b) {
		return b, nil
	}
	inputBuffer := bytes.NewBuffer(b)
	if d.reader == nil {
		reader, err := zlib.NewReader(inputBuffer)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		d.reader = reader
	} else {
		err := d.reader.(zlib.Resetter).Reset(inputBuffer, nil)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}
	d.outputBuffer.Reset()

	_, err := io.Copy(d.outputBuffer, d.reader)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	out := make([]byte, d.outputBuffer.Len())
	copy(out, d.outputBuffer.Bytes())
	return out, nil
}

// ThreadSafeZlibDecompressor provides a thread safe decompressor, at the cost of instantiating a new ZlibDecompressor
// for each Decompress call
type ThreadSafeZlibDecompressor struct{}

func NewThreadSafeZlibDecompressor() *ThreadSafeZlibDecompressor {
	return &ThreadSafeZlibDecompressor{}
}

func (d *ThreadSafeZlibDecompressor) Decompress(b []byte) ([]byte, error) {
	return NewZlibDecompressor().Decompress(b)
}

// A zlib stream starts with CMF/FLG bytes where CM=8 (deflate) and (CMF*256 + FLG) is a multiple of 31.
func hasZlibHeader(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	return b[0]&0x0f == 8 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}
