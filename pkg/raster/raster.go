// Package raster measures the spatial and spectral properties of GeoTIFF
// images: pixel size, bit depth, band count and per-band pixel statistics.
//
// The package only measures. Judging a measurement against a tolerance is the
// job of the rules in pkg/rules/raster.
package raster

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrUnreadableRaster is returned when a file cannot be opened, is not a
// supported TIFF, or carries no georeferencing.
var ErrUnreadableRaster = errors.New("unreadable raster")

// Options control how a raster is measured.
type Options struct {
	// PreferWorldFile reads the pixel size from the sidecar world file when
	// one exists, instead of the embedded geotransform.
	PreferWorldFile bool
	// WorldFile overrides sidecar discovery.
	WorldFile string
	// Stats configures the extreme value bins of the radiometric statistics.
	Stats  StatsOptions
	Logger *slog.Logger
}

// Raster holds the metadata of an opened GeoTIFF. It does not keep the file
// open; pixel data is streamed on demand by Stats.
type Raster struct {
	path   string
	opts   Options
	logger *slog.Logger

	order           binary.ByteOrder
	width, height   int
	bitsPerSample   []int
	sampleFormat    []int
	samplesPerPixel int
	planar          int
	compression     int
	predictor       int
	layout          chunkLayout

	geoTransform  GeoTransform
	hasTransform  bool
	pixelFromFile string

	noData    float64
	hasNoData bool

	statsMu sync.Mutex
	stats   []BandStats
}

// Open reads the header of the GeoTIFF at path.
func Open(path string, opts Options) (*Raster, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrUnreadableRaster, "%s: %v", path, err)
	}
	defer f.Close()

	dir, err := readDirectory(f)
	if err != nil {
		return nil, errors.Wrapf(ErrUnreadableRaster, "%s: %v", path, err)
	}

	r := &Raster{
		path:            path,
		opts:            opts,
		logger:          logger,
		order:           dir.order,
		width:           int(dir.uint(tagImageWidth, 0)),
		height:          int(dir.uint(tagImageLength, 0)),
		samplesPerPixel: int(dir.uint(tagSamplesPerPixel, 1)),
		planar:          int(dir.uint(tagPlanarConfiguration, planarChunky)),
		compression:     int(dir.uint(tagCompression, compressionNone)),
		predictor:       int(dir.uint(tagPredictor, predictorNone)),
	}
	if r.width <= 0 || r.height <= 0 {
		return nil, errors.Wrapf(ErrUnreadableRaster, "%s: missing image dimensions", path)
	}
	if r.samplesPerPixel <= 0 {
		return nil, errors.Wrapf(ErrUnreadableRaster, "%s: invalid samples per pixel %d", path, r.samplesPerPixel)
	}

	r.bitsPerSample = perSample(dir.uints(tagBitsPerSample), r.samplesPerPixel, 1)
	r.sampleFormat = perSample(dir.uints(tagSampleFormat), r.samplesPerPixel, sampleFormatUint)

	layout, err := newChunkLayout(dir, r.width, r.height, r.samplesPerPixel, r.planar)
	if err != nil {
		return nil, errors.Wrapf(ErrUnreadableRaster, "%s: %v", path, err)
	}
	r.layout = layout

	if nd := dir.ascii(tagGDALNoData); nd != "" {
		v, err := parseNoData(nd)
		if err != nil {
			logger.Warn("ignoring unparsable NODATA value", "file", path, "value", nd)
		} else {
			r.noData, r.hasNoData = v, true
		}
	}

	r.geoTransform, r.hasTransform = geoTransformFromTags(dir)

	worldFile := opts.WorldFile
	if worldFile == "" && opts.PreferWorldFile {
		worldFile = FindWorldFile(path)
	}
	if opts.PreferWorldFile && worldFile != "" {
		gt, err := ReadWorldFile(worldFile)
		if err != nil {
			logger.Warn("world file unreadable, using embedded geotransform", "file", path, "world_file", worldFile, "error", err)
		} else {
			r.geoTransform, r.hasTransform = gt, true
			r.pixelFromFile = worldFile
		}
	} else if opts.PreferWorldFile {
		logger.Info("no world file", "file", path)
	}

	if !r.hasTransform {
		return nil, errors.Wrapf(ErrUnreadableRaster, "%s: no geotransform", path)
	}
	return r, nil
}

// Path is the file the raster was opened from.
func (r *Raster) Path() string { return r.path }

// Size returns the image dimensions in pixels.
func (r *Raster) Size() (width, height int) { return r.width, r.height }

// GeoTransform returns the affine transform used for the pixel size.
func (r *Raster) GeoTransform() GeoTransform { return r.geoTransform }

// PixelSizeSource is the world file the pixel size was read from, or "" when
// it came from the embedded GeoTIFF tags.
func (r *Raster) PixelSizeSource() string { return r.pixelFromFile }

// PixelSize returns the absolute ground size of a pixel along x and y.
func (r *Raster) PixelSize() (x, y float64) {
	return r.geoTransform.PixelSize()
}

// BandCount returns the number of bands (samples per pixel).
func (r *Raster) BandCount() int { return r.samplesPerPixel }

// BitDepths returns the digital level of each band in bits.
func (r *Raster) BitDepths() []int {
	return append([]int(nil), r.bitsPerSample...)
}

// DataTypes returns a GDAL style datatype name for each band.
func (r *Raster) DataTypes() []string {
	names := make([]string, r.samplesPerPixel)
	for i := range names {
		names[i] = dataTypeName(r.sampleFormat[i], r.bitsPerSample[i])
	}
	return names
}

// NoData returns the NODATA value declared by the file.
func (r *Raster) NoData() (float64, bool) { return r.noData, r.hasNoData }

// Stats returns per-band statistics over the whole image. The result is
// computed once and memoised.
func (r *Raster) Stats(ctx context.Context) ([]BandStats, error) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	if r.stats != nil {
		return r.stats, nil
	}
	stats, err := r.computeStats(ctx)
	if err != nil {
		return nil, err
	}
	r.stats = stats
	return stats, nil
}

func geoTransformFromTags(dir *directory) (GeoTransform, bool) {
	if m := dir.floats(tagModelTransformation); len(m) >= 16 {
		return GeoTransform{m[3], m[0], m[1], m[7], m[4], m[5]}, true
	}
	scale := dir.floats(tagModelPixelScale)
	if len(scale) < 2 || scale[0] == 0 || scale[1] == 0 {
		return GeoTransform{}, false
	}
	var originX, originY float64
	if tp := dir.floats(tagModelTiepoint); len(tp) >= 6 {
		originX = tp[3] - tp[0]*scale[0]
		originY = tp[4] + tp[1]*scale[1]
	}
	return GeoTransform{originX, scale[0], 0, originY, 0, -scale[1]}, true
}

func perSample(vals []uint64, n int, def int) []int {
	out := make([]int, n)
	for i := range out {
		switch {
		case i < len(vals):
			out[i] = int(vals[i])
		case len(vals) > 0:
			out[i] = int(vals[len(vals)-1])
		default:
			out[i] = def
		}
	}
	return out
}

func parseNoData(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func dataTypeName(format, bits int) string {
	switch format {
	case sampleFormatInt:
		return fmt.Sprintf("Int%d", bits)
	case sampleFormatFloat:
		return fmt.Sprintf("Float%d", bits)
	default:
		if bits == 8 {
			return "Byte"
		}
		return fmt.Sprintf("UInt%d", bits)
	}
}
