package raster

import (
	"context"
	"math"
	"os"

	"github.com/pkg/errors"
)

const histogramBins = 256

// StatsOptions configure the extreme value bins used for radiometric balance.
type StatsOptions struct {
	// Custom enables the Low/High thresholds. Without it integer bands use
	// their datatype bounds (0 and 255 for Byte) and float bands use the
	// observed minimum and maximum.
	Custom bool
	Low    float64
	High   float64
}

// BandStats are the pixel statistics of one band restricted to its valid mask.
type BandStats struct {
	Band   int   `json:"band" yaml:"band"`
	Total  int64 `json:"total" yaml:"total"`
	Valid  int64 `json:"valid" yaml:"valid"`
	NoData int64 `json:"nodata" yaml:"nodata"`

	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
	Mean float64 `json:"mean" yaml:"mean"`

	LowThreshold  float64 `json:"low_threshold" yaml:"low_threshold"`
	HighThreshold float64 `json:"high_threshold" yaml:"high_threshold"`
	Low           int64   `json:"low" yaml:"low"`
	High          int64   `json:"high" yaml:"high"`
	// Extreme counts valid pixels in the low or the high bin.
	Extreme int64 `json:"extreme" yaml:"extreme"`

	// Histogram has 256 bins over the datatype range; nil for float bands.
	Histogram []int64 `json:"-" yaml:"-"`
}

// ExtremeFraction is the share of valid pixels in the extreme bins.
func (b BandStats) ExtremeFraction() float64 {
	if b.Valid == 0 {
		return 0
	}
	return float64(b.Extreme) / float64(b.Valid)
}

// NoDataFraction is the share of pixels equal to NODATA.
func (b BandStats) NoDataFraction() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.NoData) / float64(b.Total)
}

type accumulator struct {
	stats BandStats
	sum   float64

	noData    float64
	hasNoData bool

	fixedBins bool
	lo, hi    float64

	histLo, histHi float64
	minCount       int64
	maxCount       int64
}

func newAccumulator(band, format, bits int, opts StatsOptions, noData float64, hasNoData bool) *accumulator {
	a := &accumulator{
		stats:     BandStats{Band: band, Min: math.NaN(), Max: math.NaN()},
		noData:    noData,
		hasNoData: hasNoData,
	}
	lo, hi, integer := typeBounds(format, bits)
	if integer {
		a.stats.Histogram = make([]int64, histogramBins)
		a.histLo, a.histHi = lo, hi
	}
	switch {
	case opts.Custom:
		a.fixedBins, a.lo, a.hi = true, opts.Low, opts.High
	case integer:
		a.fixedBins, a.lo, a.hi = true, lo, hi
	}
	return a
}

func (a *accumulator) add(v float64) {
	s := &a.stats
	s.Total++
	if math.IsNaN(v) || (a.hasNoData && v == a.noData) {
		s.NoData++
		return
	}
	s.Valid++
	a.sum += v

	switch {
	case s.Valid == 1:
		s.Min, s.Max = v, v
		a.minCount, a.maxCount = 1, 1
	default:
		if v < s.Min {
			s.Min, a.minCount = v, 1
		} else if v == s.Min {
			a.minCount++
		}
		if v > s.Max {
			s.Max, a.maxCount = v, 1
		} else if v == s.Max {
			a.maxCount++
		}
	}

	if a.fixedBins {
		low, high := v <= a.lo, v >= a.hi
		if low {
			s.Low++
		}
		if high {
			s.High++
		}
		if low || high {
			s.Extreme++
		}
	}

	if s.Histogram != nil {
		bin := int((v - a.histLo) / (a.histHi - a.histLo + 1) * histogramBins)
		bin = max(0, min(histogramBins-1, bin))
		s.Histogram[bin]++
	}
}

func (a *accumulator) finish() BandStats {
	s := a.stats
	if s.Valid > 0 {
		s.Mean = a.sum / float64(s.Valid)
	}
	if a.fixedBins {
		s.LowThreshold, s.HighThreshold = a.lo, a.hi
		return s
	}
	s.LowThreshold, s.HighThreshold = s.Min, s.Max
	s.Low, s.High = a.minCount, a.maxCount
	s.Extreme = a.minCount + a.maxCount
	if s.Min == s.Max {
		s.Extreme = a.minCount
	}
	return s
}

func (r *Raster) computeStats(ctx context.Context) ([]BandStats, error) {
	bits := r.bitsPerSample[0]
	for i := range r.bitsPerSample {
		if r.bitsPerSample[i] != bits || r.sampleFormat[i] != r.sampleFormat[0] {
			return nil, errors.Wrapf(ErrUnreadableRaster, "%s: bands with mixed sample types", r.path)
		}
	}
	readSample, err := newSampleReader(r.order, r.sampleFormat[0], bits)
	if err != nil {
		return nil, errors.Wrapf(ErrUnreadableRaster, "%s: %v", r.path, err)
	}
	bytesPerSample := bits / 8

	accs := make([]*accumulator, r.samplesPerPixel)
	for i := range accs {
		accs[i] = newAccumulator(i+1, r.sampleFormat[i], bits, r.opts.Stats, r.noData, r.hasNoData)
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, errors.Wrapf(ErrUnreadableRaster, "%s: %v", r.path, err)
	}
	defer f.Close()

	planes, samplesInChunk := 1, r.samplesPerPixel
	if r.planar == planarSeparate {
		planes, samplesInChunk = r.samplesPerPixel, 1
	}

	l := r.layout
	rowSamples := l.chunkW * samplesInChunk
	for plane := 0; plane < planes; plane++ {
		for cy := 0; cy < l.down; cy++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for cx := 0; cx < l.across; cx++ {
				idx := plane*l.across*l.down + cy*l.across + cx
				x0, y0 := cx*l.chunkW, cy*l.chunkH

				rows := l.chunkH
				if !l.tiled {
					rows = min(l.chunkH, r.height-y0)
				}
				data, err := r.readChunk(f, idx, rows*rowSamples*bytesPerSample)
				if err != nil {
					return nil, errors.Wrapf(ErrUnreadableRaster, "%s: chunk %d: %v", r.path, idx, err)
				}
				if r.predictor == predictorHorizontal {
					if err := undoHorizontalPredictor(data, r.order, bytesPerSample, rowSamples, samplesInChunk); err != nil {
						return nil, errors.Wrapf(ErrUnreadableRaster, "%s: %v", r.path, err)
					}
				} else if r.predictor != predictorNone {
					return nil, errors.Wrapf(ErrUnreadableRaster, "%s: unsupported predictor %d", r.path, r.predictor)
				}

				visibleW := min(l.chunkW, r.width-x0)
				visibleH := min(rows, r.height-y0)
				for row := 0; row < visibleH; row++ {
					base := row * rowSamples
					for col := 0; col < visibleW; col++ {
						for s := 0; s < samplesInChunk; s++ {
							off := (base + col*samplesInChunk + s) * bytesPerSample
							band := s
							if planes > 1 {
								band = plane
							}
							accs[band].add(readSample(data[off : off+bytesPerSample]))
						}
					}
				}
			}
		}
	}

	stats := make([]BandStats, len(accs))
	for i, a := range accs {
		stats[i] = a.finish()
	}
	r.logger.Debug("raster statistics computed", "file", r.path, "bands", len(stats))
	return stats, nil
}

func (r *Raster) readChunk(f *os.File, idx, want int) ([]byte, error) {
	raw := make([]byte, r.layout.counts[idx])
	if _, err := f.ReadAt(raw, int64(r.layout.offsets[idx])); err != nil {
		return nil, err
	}
	data, err := decompress(r.compression, raw)
	if err != nil {
		return nil, err
	}
	if len(data) < want {
		return nil, errors.Errorf("short chunk: %d bytes, want %d", len(data), want)
	}
	return data[:want], nil
}
