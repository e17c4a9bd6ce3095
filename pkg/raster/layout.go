package raster

import (
	"github.com/pkg/errors"
)

// chunkLayout describes how pixel data is split into strips or tiles.
type chunkLayout struct {
	tiled          bool
	chunkW, chunkH int
	across, down   int
	offsets        []uint64
	counts         []uint64
}

func newChunkLayout(dir *directory, width, height, spp, planar int) (chunkLayout, error) {
	var l chunkLayout
	switch {
	case dir.has(tagTileOffsets):
		l.tiled = true
		l.chunkW = int(dir.uint(tagTileWidth, 0))
		l.chunkH = int(dir.uint(tagTileLength, 0))
		if l.chunkW <= 0 || l.chunkH <= 0 {
			return l, errors.New("invalid tile size")
		}
		l.offsets = dir.uints(tagTileOffsets)
		l.counts = dir.uints(tagTileByteCounts)
	case dir.has(tagStripOffsets):
		l.chunkW = width
		l.chunkH = int(dir.uint(tagRowsPerStrip, uint64(height)))
		if l.chunkH <= 0 || l.chunkH > height {
			l.chunkH = height
		}
		l.offsets = dir.uints(tagStripOffsets)
		l.counts = dir.uints(tagStripByteCounts)
	default:
		return l, errors.New("no strip or tile offsets")
	}

	l.across = (width + l.chunkW - 1) / l.chunkW
	l.down = (height + l.chunkH - 1) / l.chunkH

	want := l.across * l.down
	if planar == planarSeparate {
		want *= spp
	}
	if len(l.offsets) < want {
		return l, errors.Errorf("expected %d data chunks, found %d", want, len(l.offsets))
	}
	if len(l.counts) < len(l.offsets) {
		return l, errors.New("missing chunk byte counts")
	}
	return l, nil
}
