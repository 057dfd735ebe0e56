package compress

import (
	"bytes"
	"compress/zlib"

	"github.com/pkg/errors"
)

// Compressor is a fast, single threaded compressor.
// This type allows us to reuse buffers etc for performance
type Compressor interface {
	// Compress compresses the byte array
	Compress(b []byte) ([]byte, error)
}

// NoOpCompressor is a Compressor that does nothing.  Useful for tests.
type NoOpCompressor struct{}

func (c *NoOpCompressor) Compress(b []byte) ([]byte, error) {
	return b, nil
}

// ZlibCompressor compresses to Zlib, skipping compression for payloads smaller than minCompressSize, which
// are written as-is. ZlibDecompressor recognises both forms.
type ZlibCompressor struct {
	buffer          bytes.Buffer
	writer          *zlib.Writer
	minCompressSize int
}

func NewZlibCompressor(minCompressSize int) (*ZlibCompressor, error) {
	c := &ZlibCompressor{minCompressSize: minCompressSize}
	writer, err := zlib.NewWriterLevel(&c.buffer, zlib.BestSpeed)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	c.writer = writer
	return c, nil
}

func (c *ZlibCompressor) Compress(b []byte) ([]byte, error) {
	if len(b) < c.minCompressSize {
		return b, nil
	}
	c.buffer.Reset()
	c.writer.Reset(&c.buffer)
	if _, err := c.writer.Write(b); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := c.writer.Close(); err != nil {
		return nil, errors.WithStack(err)
	}
	out := make([]byte, c.buffer.Len())
	copy(out, c.buffer.Bytes())
	return out, nil
}

// ThreadSafeZlibCompressor provides a thread safe compressor, at the cost of instantiating a new ZlibCompressor
// for each Compress call
type ThreadSafeZlibCompressor struct {
	minCompressSize int
}

func NewThreadSafeZlibCompressor(minCompressSize int) *ThreadSafeZlibCompressor {
	return &ThreadSafeZlibCompressor{minCompressSize: minCompressSize}
}

func (c *ThreadSafeZlibCompressor) Compress(b []byte) ([]byte, error) {
	compressor, err := NewZlibCompressor(c.minCompressSize)
	if err != nil {
		return nil, err
	}
	return compressor.Compress(b)
}
