package raster

import (
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// TIFF tags read by the inspector.
const (
	tagImageWidth          = 256
	tagImageLength         = 257
	tagBitsPerSample       = 258
	tagCompression         = 259
	tagPhotometric         = 262
	tagStripOffsets        = 273
	tagSamplesPerPixel     = 277
	tagRowsPerStrip        = 278
	tagStripByteCounts     = 279
	tagPlanarConfiguration = 284
	tagPredictor           = 317
	tagTileWidth           = 322
	tagTileLength          = 323
	tagTileOffsets         = 324
	tagTileByteCounts      = 325
	tagSampleFormat        = 339

	tagModelPixelScale     = 33550
	tagModelTiepoint       = 33922
	tagModelTransformation = 34264
	tagGDALNoData          = 42113
)

// TIFF field types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndefined = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
)

// Compression schemes.
const (
	compressionNone       = 1
	compressionLZW        = 5
	compressionDeflate    = 8
	compressionPackBits   = 32773
	compressionDeflateOld = 32946
)

// Sample formats.
const (
	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3
)

const (
	planarChunky   = 1
	planarSeparate = 2

	predictorNone       = 1
	predictorHorizontal = 2
)

// maxFieldSize bounds the bytes read for a single IFD field.
const maxFieldSize = 64 << 20

var typeSizes = map[uint16]uint32{
	dtByte: 1, dtASCII: 1, dtShort: 2, dtLong: 4, dtRational: 8,
	dtSByte: 1, dtUndefined: 1, dtSShort: 2, dtSLong: 4, dtSRational: 8,
	dtFloat: 4, dtDouble: 8,
}

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	raw   []byte
}

// directory is the decoded first image file directory.
type directory struct {
	order   binary.ByteOrder
	entries map[uint16]ifdEntry
}

// readDirectory parses the TIFF header and the first IFD.
func readDirectory(r io.ReaderAt) (*directory, error) {
	header := make([]byte, 8)
	if _, err := r.ReadAt(header, 0); err != nil {
		return nil, errors.Wrap(err, "read tiff header")
	}

	var order binary.ByteOrder
	switch string(header[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, errors.New("not a tiff file")
	}

	switch magic := order.Uint16(header[2:4]); magic {
	case 42:
	case 43:
		return nil, errors.New("bigtiff is not supported")
	default:
		return nil, errors.Errorf("bad tiff magic number %d", magic)
	}

	offset := int64(order.Uint32(header[4:8]))
	countBuf := make([]byte, 2)
	if _, err := r.ReadAt(countBuf, offset); err != nil {
		return nil, errors.Wrap(err, "read ifd entry count")
	}
	n := int(order.Uint16(countBuf))

	buf := make([]byte, 12*n)
	if _, err := r.ReadAt(buf, offset+2); err != nil {
		return nil, errors.Wrap(err, "read ifd entries")
	}

	d := &directory{order: order, entries: make(map[uint16]ifdEntry, n)}
	for i := 0; i < n; i++ {
		b := buf[i*12 : (i+1)*12]
		e := ifdEntry{
			tag:   order.Uint16(b[0:2]),
			typ:   order.Uint16(b[2:4]),
			count: order.Uint32(b[4:8]),
		}
		size, ok := typeSizes[e.typ]
		if !ok {
			// Unknown field types are skipped, as the TIFF spec requires.
			continue
		}
		total := uint64(size) * uint64(e.count)
		if total > maxFieldSize {
			return nil, errors.Errorf("tiff tag %d is too large (%d bytes)", e.tag, total)
		}
		if total <= 4 {
			e.raw = append([]byte(nil), b[8:8+total]...)
		} else {
			e.raw = make([]byte, total)
			if _, err := r.ReadAt(e.raw, int64(order.Uint32(b[8:12]))); err != nil {
				return nil, errors.Wrapf(err, "read tiff tag %d", e.tag)
			}
		}
		d.entries[e.tag] = e
	}
	return d, nil
}

func (d *directory) has(tag uint16) bool {
	_, ok := d.entries[tag]
	return ok
}

// uints returns integer valued fields.
func (d *directory) uints(tag uint16) []uint64 {
	e, ok := d.entries[tag]
	if !ok {
		return nil
	}
	size := typeSizes[e.typ]
	vals := make([]uint64, 0, e.count)
	for i := uint32(0); i < e.count; i++ {
		b := e.raw[i*size : (i+1)*size]
		switch e.typ {
		case dtByte, dtUndefined:
			vals = append(vals, uint64(b[0]))
		case dtSByte:
			vals = append(vals, uint64(int8(b[0])))
		case dtShort:
			vals = append(vals, uint64(d.order.Uint16(b)))
		case dtSShort:
			vals = append(vals, uint64(int16(d.order.Uint16(b))))
		case dtLong:
			vals = append(vals, uint64(d.order.Uint32(b)))
		case dtSLong:
			vals = append(vals, uint64(int32(d.order.Uint32(b))))
		default:
			return nil
		}
	}
	return vals
}

func (d *directory) uint(tag uint16, def uint64) uint64 {
	if v := d.uints(tag); len(v) > 0 {
		return v[0]
	}
	return def
}

// floats returns floating point or rational fields.
func (d *directory) floats(tag uint16) []float64 {
	e, ok := d.entries[tag]
	if !ok {
		return nil
	}
	size := typeSizes[e.typ]
	vals := make([]float64, 0, e.count)
	for i := uint32(0); i < e.count; i++ {
		b := e.raw[i*size : (i+1)*size]
		switch e.typ {
		case dtFloat:
			vals = append(vals, float64(math.Float32frombits(d.order.Uint32(b))))
		case dtDouble:
			vals = append(vals, math.Float64frombits(d.order.Uint64(b)))
		case dtRational:
			num, den := d.order.Uint32(b[:4]), d.order.Uint32(b[4:])
			vals = append(vals, float64(num)/float64(den))
		case dtSRational:
			num, den := int32(d.order.Uint32(b[:4])), int32(d.order.Uint32(b[4:]))
			vals = append(vals, float64(num)/float64(den))
		default:
			for _, u := range d.uints(tag) {
				vals = append(vals, float64(u))
			}
			return vals
		}
	}
	return vals
}

func (d *directory) ascii(tag uint16) string {
	e, ok := d.entries[tag]
	if !ok || e.typ != dtASCII {
		return ""
	}
	return strings.TrimRight(string(e.raw), "\x00 ")
}
