package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// Compressors operate per fragment and are byte-preserving round trips.
// gzip emits the standard container (magic 1f 8b); lzma uses the xz
// container.

type gzipCodec struct{}

func (gzipCodec) Encode(fragments [][]byte, _ *Context) ([][]byte, error) {
	return compressEach(fragments, func(frag []byte) ([]byte, error) {
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(frag); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
}

func (gzipCodec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	return decompressEach(fragments, func(frag []byte) ([]byte, error) {
		r, err := gzip.NewReader(bytes.NewReader(frag))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	})
}

func (gzipCodec) IsChunking() bool { return false }
func (gzipCodec) IsHeader() bool   { return false }

type deflateCodec struct{}

func (deflateCodec) Encode(fragments [][]byte, _ *Context) ([][]byte, error) {
	return compressEach(fragments, func(frag []byte) ([]byte, error) {
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(frag); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
}

func (deflateCodec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	return decompressEach(fragments, func(frag []byte) ([]byte, error) {
		r := flate.NewReader(bytes.NewReader(frag))
		defer r.Close()
		return io.ReadAll(r)
	})
}

func (deflateCodec) IsChunking() bool { return false }
func (deflateCodec) IsHeader() bool   { return false }

type brotliCodec struct{}

func (brotliCodec) Encode(fragments [][]byte, _ *Context) ([][]byte, error) {
	return compressEach(fragments, func(frag []byte) ([]byte, error) {
		var buf bytes.Buffer
		w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
		if _, err := w.Write(frag); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
}

func (brotliCodec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	return decompressEach(fragments, func(frag []byte) ([]byte, error) {
		return io.ReadAll(brotli.NewReader(bytes.NewReader(frag)))
	})
}

func (brotliCodec) IsChunking() bool { return false }
func (brotliCodec) IsHeader() bool   { return false }

type lzmaCodec struct{}

func (lzmaCodec) Encode(fragments [][]byte, _ *Context) ([][]byte, error) {
	return compressEach(fragments, func(frag []byte) ([]byte, error) {
		var buf bytes.Buffer
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(frag); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
}

func (lzmaCodec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	return decompressEach(fragments, func(frag []byte) ([]byte, error) {
		r, err := xz.NewReader(bytes.NewReader(frag))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)
	})
}

func (lzmaCodec) IsChunking() bool { return false }
func (lzmaCodec) IsHeader() bool   { return false }

func compressEach(fragments [][]byte, fn func([]byte) ([]byte, error)) ([][]byte, error) {
	out := make([][]byte, 0, len(fragments))
	for _, frag := range fragments {
		d, err := fn(frag)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompression, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func decompressEach(fragments [][]byte, fn func([]byte) ([]byte, error)) ([][]byte, float64, error) {
	out := make([][]byte, 0, len(fragments))
	for _, frag := range fragments {
		d, err := fn(frag)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrCompression, err)
		}
		out = append(out, d)
	}
	return out, 1, nil
}
