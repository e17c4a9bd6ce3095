package raster

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// tiffFixture describes a small GeoTIFF written by writeTIFF.
type tiffFixture struct {
	width, height int
	bands         int
	bits          int
	format        int
	planar        int
	tileW, tileH  int
	compression   int
	bigEndian     bool
	noData        string
	scale         []float64
	tiepoint      []float64
	// pixels holds one row-major slice per band.
	pixels [][]float64
}

type fixtureEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func (f tiffFixture) order() binary.ByteOrder {
	if f.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (f tiffFixture) putSample(buf []byte, v float64) {
	o := f.order()
	switch {
	case f.format == sampleFormatFloat && f.bits == 32:
		o.PutUint32(buf, math.Float32bits(float32(v)))
	case f.format == sampleFormatFloat && f.bits == 64:
		o.PutUint64(buf, math.Float64bits(v))
	case f.bits == 8:
		buf[0] = byte(int64(v))
	case f.bits == 16:
		o.PutUint16(buf, uint16(int64(v)))
	case f.bits == 32:
		o.PutUint32(buf, uint32(int64(v)))
	}
}

func (f tiffFixture) chunks() [][]byte {
	bps := f.bits / 8
	planes, spc := 1, f.bands
	if f.planar == planarSeparate {
		planes, spc = f.bands, 1
	}
	chunkW, chunkH := f.width, 1
	if f.tileW > 0 {
		chunkW, chunkH = f.tileW, f.tileH
	}
	across := (f.width + chunkW - 1) / chunkW
	down := (f.height + chunkH - 1) / chunkH

	var out [][]byte
	for p := 0; p < planes; p++ {
		for cy := 0; cy < down; cy++ {
			for cx := 0; cx < across; cx++ {
				buf := make([]byte, chunkW*chunkH*spc*bps)
				for row := 0; row < chunkH; row++ {
					for col := 0; col < chunkW; col++ {
						x, y := cx*chunkW+col, cy*chunkH+row
						if x >= f.width || y >= f.height {
							continue
						}
						for s := 0; s < spc; s++ {
							band := s
							if planes > 1 {
								band = p
							}
							off := ((row*chunkW+col)*spc + s) * bps
							f.putSample(buf[off:off+bps], f.pixels[band][y*f.width+x])
						}
					}
				}
				out = append(out, f.compress(buf))
			}
		}
	}
	return out
}

func (f tiffFixture) compress(buf []byte) []byte {
	switch f.compression {
	case compressionDeflate:
		var b bytes.Buffer
		w := zlib.NewWriter(&b)
		_, _ = w.Write(buf)
		_ = w.Close()
		return b.Bytes()
	case compressionPackBits:
		var b bytes.Buffer
		for i := 0; i < len(buf); i += 128 {
			end := min(i+128, len(buf))
			b.WriteByte(byte(end - i - 1))
			b.Write(buf[i:end])
		}
		return b.Bytes()
	default:
		return buf
	}
}

func (f tiffFixture) encode() []byte {
	o := f.order()
	if f.bands == 0 {
		f.bands = 1
	}
	if f.planar == 0 {
		f.planar = planarChunky
	}
	if f.compression == 0 {
		f.compression = compressionNone
	}
	if f.format == 0 {
		f.format = sampleFormatUint
	}

	chunks := f.chunks()
	var data bytes.Buffer
	offsets := make([]uint32, len(chunks))
	counts := make([]uint32, len(chunks))
	for i, c := range chunks {
		offsets[i] = uint32(8 + data.Len())
		counts[i] = uint32(len(c))
		data.Write(c)
	}
	if data.Len()%2 == 1 {
		data.WriteByte(0)
	}

	shorts := func(vals ...int) []byte {
		b := make([]byte, 2*len(vals))
		for i, v := range vals {
			o.PutUint16(b[i*2:], uint16(v))
		}
		return b
	}
	longs := func(vals ...uint32) []byte {
		b := make([]byte, 4*len(vals))
		for i, v := range vals {
			o.PutUint32(b[i*4:], v)
		}
		return b
	}
	doubles := func(vals ...float64) []byte {
		b := make([]byte, 8*len(vals))
		for i, v := range vals {
			o.PutUint64(b[i*8:], math.Float64bits(v))
		}
		return b
	}
	repeat := func(v, n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = v
		}
		return out
	}

	entries := []fixtureEntry{
		{tagImageWidth, dtLong, 1, longs(uint32(f.width))},
		{tagImageLength, dtLong, 1, longs(uint32(f.height))},
		{tagBitsPerSample, dtShort, uint32(f.bands), shorts(repeat(f.bits, f.bands)...)},
		{tagCompression, dtShort, 1, shorts(f.compression)},
		{tagPhotometric, dtShort, 1, shorts(1)},
		{tagSamplesPerPixel, dtShort, 1, shorts(f.bands)},
		{tagPlanarConfiguration, dtShort, 1, shorts(f.planar)},
		{tagSampleFormat, dtShort, uint32(f.bands), shorts(repeat(f.format, f.bands)...)},
	}
	if f.tileW > 0 {
		entries = append(entries,
			fixtureEntry{tagTileWidth, dtLong, 1, longs(uint32(f.tileW))},
			fixtureEntry{tagTileLength, dtLong, 1, longs(uint32(f.tileH))},
			fixtureEntry{tagTileOffsets, dtLong, uint32(len(offsets)), longs(offsets...)},
			fixtureEntry{tagTileByteCounts, dtLong, uint32(len(counts)), longs(counts...)},
		)
	} else {
		entries = append(entries,
			fixtureEntry{tagStripOffsets, dtLong, uint32(len(offsets)), longs(offsets...)},
			fixtureEntry{tagRowsPerStrip, dtLong, 1, longs(1)},
			fixtureEntry{tagStripByteCounts, dtLong, uint32(len(counts)), longs(counts...)},
		)
	}
	if len(f.scale) > 0 {
		entries = append(entries, fixtureEntry{tagModelPixelScale, dtDouble, uint32(len(f.scale)), doubles(f.scale...)})
	}
	if len(f.tiepoint) > 0 {
		entries = append(entries, fixtureEntry{tagModelTiepoint, dtDouble, uint32(len(f.tiepoint)), doubles(f.tiepoint...)})
	}
	if f.noData != "" {
		s := append([]byte(f.noData), 0)
		entries = append(entries, fixtureEntry{tagGDALNoData, dtASCII, uint32(len(s)), s})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	ifdOffset := uint32(8 + data.Len())
	overflowOffset := ifdOffset + 2 + uint32(12*len(entries)) + 4

	var ifd, overflow bytes.Buffer
	ifd.Write(shorts(len(entries)))
	for _, e := range entries {
		b := make([]byte, 12)
		o.PutUint16(b[0:], e.tag)
		o.PutUint16(b[2:], e.typ)
		o.PutUint32(b[4:], e.count)
		if len(e.data) <= 4 {
			copy(b[8:], e.data)
		} else {
			o.PutUint32(b[8:], overflowOffset+uint32(overflow.Len()))
			overflow.Write(e.data)
			if overflow.Len()%2 == 1 {
				overflow.WriteByte(0)
			}
		}
		ifd.Write(b)
	}
	ifd.Write(longs(0))

	var out bytes.Buffer
	if f.bigEndian {
		out.WriteString("MM")
	} else {
		out.WriteString("II")
	}
	out.Write(shorts(42))
	out.Write(longs(ifdOffset))
	out.Write(data.Bytes())
	out.Write(ifd.Bytes())
	out.Write(overflow.Bytes())
	return out.Bytes()
}

func writeTIFF(t *testing.T, dir, name string, f tiffFixture) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, f.encode(), 0o644))
	return path
}

// fill returns a band of n pixels all equal to v.
func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
