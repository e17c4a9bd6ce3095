package raster

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/image/tiff/lzw"
)

// decompress expands one strip or tile.
func decompress(compression int, raw []byte) ([]byte, error) {
	switch compression {
	case compressionNone:
		return raw, nil
	case compressionLZW:
		rc := lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
		defer rc.Close()
		return io.ReadAll(rc)
	case compressionDeflate, compressionDeflateOld:
		rc, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	case compressionPackBits:
		return unpackBits(raw)
	default:
		return nil, errors.Errorf("unsupported compression %d", compression)
	}
}

// unpackBits decodes Apple PackBits run length encoding.
func unpackBits(src []byte) ([]byte, error) {
	var dst []byte
	for i := 0; i < len(src); {
		n := int(int8(src[i]))
		i++
		switch {
		case n >= 0:
			end := i + n + 1
			if end > len(src) {
				return nil, errors.New("packbits: literal run past end of data")
			}
			dst = append(dst, src[i:end]...)
			i = end
		case n != -128:
			if i >= len(src) {
				return nil, errors.New("packbits: missing repeated byte")
			}
			dst = append(dst, bytes.Repeat(src[i:i+1], 1-n)...)
			i++
		}
	}
	return dst, nil
}

// undoHorizontalPredictor reverses TIFF predictor 2 in place. stride is the
// number of samples per pixel in the chunk.
func undoHorizontalPredictor(data []byte, order binary.ByteOrder, bytesPerSample, rowSamples, stride int) error {
	rowBytes := rowSamples * bytesPerSample
	for start := 0; start+rowBytes <= len(data); start += rowBytes {
		row := data[start : start+rowBytes]
		switch bytesPerSample {
		case 1:
			for i := stride; i < rowSamples; i++ {
				row[i] += row[i-stride]
			}
		case 2:
			for i := stride; i < rowSamples; i++ {
				v := order.Uint16(row[i*2:]) + order.Uint16(row[(i-stride)*2:])
				order.PutUint16(row[i*2:], v)
			}
		case 4:
			for i := stride; i < rowSamples; i++ {
				v := order.Uint32(row[i*4:]) + order.Uint32(row[(i-stride)*4:])
				order.PutUint32(row[i*4:], v)
			}
		default:
			return errors.Errorf("predictor not supported for %d byte samples", bytesPerSample)
		}
	}
	return nil
}

// sampleReader converts the bytes of one sample into a float64.
type sampleReader func([]byte) float64

func newSampleReader(order binary.ByteOrder, format, bits int) (sampleReader, error) {
	switch format {
	case sampleFormatUint:
		switch bits {
		case 8:
			return func(b []byte) float64 { return float64(b[0]) }, nil
		case 16:
			return func(b []byte) float64 { return float64(order.Uint16(b)) }, nil
		case 32:
			return func(b []byte) float64 { return float64(order.Uint32(b)) }, nil
		}
	case sampleFormatInt:
		switch bits {
		case 8:
			return func(b []byte) float64 { return float64(int8(b[0])) }, nil
		case 16:
			return func(b []byte) float64 { return float64(int16(order.Uint16(b))) }, nil
		case 32:
			return func(b []byte) float64 { return float64(int32(order.Uint32(b))) }, nil
		}
	case sampleFormatFloat:
		switch bits {
		case 32:
			return func(b []byte) float64 { return float64(math.Float32frombits(order.Uint32(b))) }, nil
		case 64:
			return func(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) }, nil
		}
	}
	return nil, errors.Errorf("unsupported sample type %s", dataTypeName(format, bits))
}

// typeBounds returns the representable range of an integer sample type.
func typeBounds(format, bits int) (lo, hi float64, ok bool) {
	switch format {
	case sampleFormatUint:
		return 0, math.Exp2(float64(bits)) - 1, true
	case sampleFormatInt:
		half := math.Exp2(float64(bits - 1))
		return -half, half - 1, true
	default:
		return 0, 0, false
	}
}
