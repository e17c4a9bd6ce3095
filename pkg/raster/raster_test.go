package raster

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byteImage() tiffFixture {
	return tiffFixture{
		width:    4,
		height:   2,
		bits:     8,
		scale:    []float64{0.5, 0.5, 0},
		tiepoint: []float64{0, 0, 0, 1000, 2000, 0},
		pixels:   [][]float64{{0, 10, 255, 255, 20, 30, 0, 40}},
	}
}

func TestOpen_Metadata(t *testing.T) {
	dir := t.TempDir()
	path := writeTIFF(t, dir, "ortho.tif", byteImage())

	r, err := Open(path, Options{})
	require.NoError(t, err)

	w, h := r.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, h)
	assert.Equal(t, 1, r.BandCount())
	assert.Equal(t, []int{8}, r.BitDepths())
	assert.Equal(t, []string{"Byte"}, r.DataTypes())

	x, y := r.PixelSize()
	assert.InDelta(t, 0.5, x, 1e-12)
	assert.InDelta(t, 0.5, y, 1e-12)
	assert.Empty(t, r.PixelSizeSource())

	gt := r.GeoTransform()
	assert.InDelta(t, 1000, gt[0], 1e-9)
	assert.InDelta(t, 2000, gt[3], 1e-9)
	assert.InDelta(t, -0.5, gt[5], 1e-12)

	_, ok := r.NoData()
	assert.False(t, ok)
}

func TestOpen_WorldFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTIFF(t, dir, "ortho.tif", byteImage())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ortho.tfw"),
		[]byte("0.25\n0\n0\n-0.25\n1000.125\n1999.875\n"), 0o644))

	t.Run("preferred", func(t *testing.T) {
		r, err := Open(path, Options{PreferWorldFile: true})
		require.NoError(t, err)
		x, y := r.PixelSize()
		assert.InDelta(t, 0.25, x, 1e-12)
		assert.InDelta(t, 0.25, y, 1e-12)
		assert.Equal(t, filepath.Join(dir, "ortho.tfw"), r.PixelSizeSource())
	})

	t.Run("embedded", func(t *testing.T) {
		r, err := Open(path, Options{})
		require.NoError(t, err)
		x, _ := r.PixelSize()
		assert.InDelta(t, 0.5, x, 1e-12)
	})

	t.Run("missing sidecar falls back to tags", func(t *testing.T) {
		other := writeTIFF(t, dir, "other.tif", byteImage())
		r, err := Open(other, Options{PreferWorldFile: true})
		require.NoError(t, err)
		x, _ := r.PixelSize()
		assert.InDelta(t, 0.5, x, 1e-12)
		assert.Empty(t, r.PixelSizeSource())
	})
}

func TestOpen_Unreadable(t *testing.T) {
	dir := t.TempDir()

	noGeo := byteImage()
	noGeo.scale = nil
	noGeo.tiepoint = nil
	junk := filepath.Join(dir, "junk.tif")
	require.NoError(t, os.WriteFile(junk, []byte("this is not a tiff"), 0o644))
	bigtiff := filepath.Join(dir, "big.tif")
	require.NoError(t, os.WriteFile(bigtiff, []byte{'I', 'I', 43, 0, 8, 0, 0, 0}, 0o644))

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.tif")},
		{name: "not a tiff", path: junk},
		{name: "bigtiff", path: bigtiff},
		{name: "no georeferencing", path: writeTIFF(t, dir, "nogeo.tif", noGeo)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.path, Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnreadableRaster), "got %v", err)
		})
	}
}

func TestStats_ByteBand(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name         string
		noData       string
		opts         StatsOptions
		wantValid    int64
		wantNoData   int64
		wantExtreme  int64
		wantFraction float64
	}{
		{name: "datatype bounds", wantValid: 8, wantExtreme: 4, wantFraction: 0.5},
		{name: "nodata excluded", noData: "0", wantValid: 6, wantNoData: 2, wantExtreme: 2, wantFraction: 2.0 / 6.0},
		{name: "custom thresholds", opts: StatsOptions{Custom: true, Low: 10, High: 250}, wantValid: 8, wantExtreme: 5, wantFraction: 5.0 / 8.0},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := byteImage()
			f.noData = tt.noData
			path := writeTIFF(t, dir, filepath.Base(t.Name())+string(rune('a'+i))+".tif", f)

			r, err := Open(path, Options{Stats: tt.opts})
			require.NoError(t, err)
			stats, err := r.Stats(context.Background())
			require.NoError(t, err)
			require.Len(t, stats, 1)

			s := stats[0]
			assert.Equal(t, 1, s.Band)
			assert.Equal(t, int64(8), s.Total)
			assert.Equal(t, tt.wantValid, s.Valid)
			assert.Equal(t, tt.wantNoData, s.NoData)
			assert.Equal(t, tt.wantExtreme, s.Extreme)
			assert.InDelta(t, tt.wantFraction, s.ExtremeFraction(), 1e-12)
			assert.InDelta(t, float64(tt.wantNoData)/8, s.NoDataFraction(), 1e-12)
			require.Len(t, s.Histogram, histogramBins)
			assert.Equal(t, int64(2), s.Histogram[255])
		})
	}
}

func TestStats_TiledPlanarDeflate(t *testing.T) {
	const w, h = 5, 3
	band3 := fill(w*h, 300)
	band3[w*h-1] = 65535

	f := tiffFixture{
		width: w, height: h, bands: 3, bits: 16,
		planar:      planarSeparate,
		tileW:       4,
		tileH:       2,
		compression: compressionDeflate,
		scale:       []float64{2, 2, 0},
		pixels:      [][]float64{fill(w*h, 100), fill(w*h, 200), band3},
	}
	path := writeTIFF(t, t.TempDir(), "tiled.tif", f)

	r, err := Open(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"UInt16", "UInt16", "UInt16"}, r.DataTypes())

	stats, err := r.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 3)

	for i, want := range []float64{100, 200} {
		assert.Equal(t, int64(w*h), stats[i].Valid, "band %d", i+1)
		assert.InDelta(t, want, stats[i].Mean, 1e-9)
		assert.Zero(t, stats[i].Extreme)
	}
	assert.Equal(t, int64(1), stats[2].High)
	assert.Equal(t, int64(1), stats[2].Extreme)
	assert.InDelta(t, 65535, stats[2].Max, 0)
}

func TestStats_FloatBigEndian(t *testing.T) {
	tests := []struct {
		name        string
		pixels      []float64
		wantValid   int64
		wantExtreme int64
	}{
		{name: "observed extremes", pixels: []float64{1.5, 2.5, -9999, 2.5, 1.5, 3}, wantValid: 5, wantExtreme: 3},
		{name: "constant band", pixels: []float64{2, 2, 2, -9999, 2, 2}, wantValid: 5, wantExtreme: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tiffFixture{
				width: 3, height: 2, bits: 32,
				format:    sampleFormatFloat,
				bigEndian: true,
				noData:    "-9999",
				scale:     []float64{10, 10, 0},
				pixels:    [][]float64{tt.pixels},
			}
			r, err := Open(writeTIFF(t, t.TempDir(), "dem.tif", f), Options{})
			require.NoError(t, err)

			nd, ok := r.NoData()
			require.True(t, ok)
			assert.Equal(t, -9999.0, nd)

			stats, err := r.Stats(context.Background())
			require.NoError(t, err)
			s := stats[0]
			assert.Equal(t, tt.wantValid, s.Valid)
			assert.Equal(t, int64(1), s.NoData)
			assert.Equal(t, tt.wantExtreme, s.Extreme)
			assert.Nil(t, s.Histogram)
		})
	}
}

func TestStats_PackBitsChunky(t *testing.T) {
	f := tiffFixture{
		width: 3, height: 3, bands: 3, bits: 8,
		compression: compressionPackBits,
		scale:       []float64{1, 1, 0},
		pixels:      [][]float64{fill(9, 10), fill(9, 20), fill(9, 30)},
	}
	r, err := Open(writeTIFF(t, t.TempDir(), "rgb.tif", f), Options{})
	require.NoError(t, err)

	stats, err := r.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 3)
	for i, s := range stats {
		assert.InDelta(t, float64(10*(i+1)), s.Mean, 1e-9)
		assert.Equal(t, int64(9), s.Valid)
	}
}

func TestStats_Cancelled(t *testing.T) {
	r, err := Open(writeTIFF(t, t.TempDir(), "ortho.tif", byteImage()), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Stats(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadWorldFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.tfw")
	require.NoError(t, os.WriteFile(good, []byte("0.5\n0.0\n0.0\n-0.5\n100.25\n199.75\n"), 0o644))
	short := filepath.Join(dir, "b.tfw")
	require.NoError(t, os.WriteFile(short, []byte("0.5\n0.0\n"), 0o644))
	bad := filepath.Join(dir, "c.tfw")
	require.NoError(t, os.WriteFile(bad, []byte("0.5\nabc\n0\n0\n0\n0\n"), 0o644))

	gt, err := ReadWorldFile(good)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{100, 0.5, 0, 200, 0, -0.5}, gt[:], 1e-12)

	_, err = ReadWorldFile(short)
	assert.Error(t, err)
	_, err = ReadWorldFile(bad)
	assert.Error(t, err)
}

func TestGeoTransform_PixelSizeRotated(t *testing.T) {
	gt := GeoTransform{0, 3, 4, 0, 4, -3}
	x, y := gt.PixelSize()
	assert.InDelta(t, 5, x, 1e-12)
	assert.InDelta(t, 5, y, 1e-12)
}

func TestUnpackBits(t *testing.T) {
	got, err := unpackBits([]byte{0xFE, 0xAA, 0x02, 0x80, 0x00, 0x2A, 0x80})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xAA, 0xAA, 0x80, 0x00, 0x2A}, got)

	_, err = unpackBits([]byte{0x05, 0x01})
	assert.Error(t, err)
}
