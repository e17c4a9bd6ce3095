package raster

import (
	"bufio"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// worldFileExts are the sidecar extensions tried, in order.
var worldFileExts = []string{".tfw", ".tifw", ".wld", ".TFW"}

// GeoTransform maps pixel/line coordinates to georeferenced coordinates using
// GDAL's six coefficient convention:
//
//	Xgeo = GT[0] + col*GT[1] + row*GT[2]
//	Ygeo = GT[3] + col*GT[4] + row*GT[5]
type GeoTransform [6]float64

// PixelSize returns the ground size of a pixel along columns and rows. With
// rotation terms the size is the length of the pixel edge vector.
func (gt GeoTransform) PixelSize() (x, y float64) {
	x = math.Hypot(gt[1], gt[4])
	y = math.Hypot(gt[2], gt[5])
	return x, y
}

// FindWorldFile returns the sidecar world file of a raster, or "" when none exists.
func FindWorldFile(rasterPath string) string {
	base := strings.TrimSuffix(rasterPath, filepath.Ext(rasterPath))
	for _, ext := range worldFileExts {
		candidate := base + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// ReadWorldFile parses a world file. Its six lines are A, D, B, E, C, F where
// C and F locate the centre of the upper-left pixel.
func ReadWorldFile(path string) (GeoTransform, error) {
	f, err := os.Open(path)
	if err != nil {
		return GeoTransform{}, errors.Wrapf(err, "open world file %s", path)
	}
	defer f.Close()

	var vals []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return GeoTransform{}, errors.Wrapf(err, "world file %s line %d", path, len(vals)+1)
		}
		vals = append(vals, v)
	}
	if err := scanner.Err(); err != nil {
		return GeoTransform{}, errors.Wrapf(err, "read world file %s", path)
	}
	if len(vals) != 6 {
		return GeoTransform{}, errors.Errorf("world file %s has %d values, want 6", path, len(vals))
	}

	a, d, b, e, c, fy := vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]
	return GeoTransform{c - a/2 - b/2, a, b, fy - d/2 - e/2, d, e}, nil
}
