package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/geoqc/pkg/raster"
	"github.com/nsxbet/geoqc/pkg/types"
)

const testDomain types.Domain = "test"

type fakeRaster struct{ bands int }

func (f fakeRaster) PixelSize() (float64, float64) { return 0.5, 0.5 }
func (f fakeRaster) BandCount() int                { return f.bands }
func (f fakeRaster) BitDepths() []int              { return []int{8} }
func (f fakeRaster) DataTypes() []string           { return []string{"Byte"} }
func (f fakeRaster) NoData() (float64, bool)       { return 0, false }
func (f fakeRaster) Stats(context.Context) ([]raster.BandStats, error) {
	return nil, nil
}

// bandChecker judges bands_len against its tolerance and passes every other rule.
type bandChecker struct{ rule types.Rule }

func (b bandChecker) Check(_ context.Context, c Context) (*types.Outcome, error) {
	if c.Item.Domain() == types.DomainVector {
		if _, err := c.Table(); err != nil {
			return nil, err
		}
		return types.NewOutcome(c.Item, b.rule, types.VerdictPass), nil
	}
	m, err := c.Raster()
	if err != nil {
		return nil, err
	}
	verdict := types.VerdictFail
	if b.rule != types.RuleBandsLen || c.Tolerance.Within(float64(m.BandCount())) {
		verdict = types.VerdictPass
	}
	o := types.NewOutcome(c.Item, b.rule, verdict)
	o.Measured = fmt.Sprint(m.BandCount())
	return o, nil
}

type panicChecker struct{}

func (panicChecker) Check(context.Context, Context) (*types.Outcome, error) {
	panic("boom")
}

type nilChecker struct{}

func (nilChecker) Check(context.Context, Context) (*types.Outcome, error) {
	return nil, nil
}

func init() {
	for _, d := range []types.Domain{types.DomainRaster, types.DomainVector} {
		for _, r := range types.RulesFor(d) {
			Register(d, r, bandChecker{rule: r})
		}
	}
	Register(testDomain, "boom", panicChecker{})
	Register(testDomain, "empty", nilChecker{})
}

type nopGeometry struct{ GeometrySource }

func rasterItems(n int) []types.Item {
	items := make([]types.Item, n)
	for i := range items {
		items[i] = types.RasterFile{Path: fmt.Sprintf("/data/tile_%03d.tif", i)}
	}
	return items
}

func countingOpener(calls *atomic.Int64, corrupt map[string]bool) RasterOpener {
	return func(f types.RasterFile) (RasterMeasurer, error) {
		calls.Add(1)
		if corrupt[f.Path] {
			return nil, errors.Wrapf(raster.ErrUnreadableRaster, "%s: truncated", f.Path)
		}
		return fakeRaster{bands: 3}, nil
	}
}

func baseContext(opener RasterOpener) Context {
	return Context{
		OpenRaster: opener,
		Geometry:   nopGeometry{},
		Tolerances: map[types.Rule]types.Tolerance{
			types.RuleBandsLen: {Conform: 3},
		},
	}
}

func TestRegister_Panics(t *testing.T) {
	assert.Panics(t, func() { Register(testDomain, "nil", nil) })
	assert.Panics(t, func() { Register(testDomain, "boom", panicChecker{}) })
	assert.True(t, Registered(types.DomainRaster, types.RulePixelSize))
	assert.False(t, Registered(types.DomainRaster, types.RuleNull))
}

func TestCheck(t *testing.T) {
	item := types.RasterFile{Path: "a.tif"}

	t.Run("recovers panics", func(t *testing.T) {
		o, err := Check(context.Background(), testDomain, "boom", Context{Item: item})
		require.Error(t, err)
		assert.Nil(t, o)
		assert.Contains(t, err.Error(), "PANIC RECOVER")
	})

	t.Run("unknown domain", func(t *testing.T) {
		_, err := Check(context.Background(), "lidar", types.RulePixelSize, Context{Item: item})
		assert.Error(t, err)
	})

	t.Run("unknown rule", func(t *testing.T) {
		_, err := Check(context.Background(), types.DomainRaster, types.RuleNull, Context{Item: item})
		assert.Error(t, err)
	})
}

func TestEvaluate_ErrorIsolation(t *testing.T) {
	items := rasterItems(100)
	corrupt := map[string]bool{items[41].ID(): true}

	var calls atomic.Int64
	outcomes, err := Evaluate(context.Background(), items, []types.Rule{types.RuleAll},
		baseContext(countingOpener(&calls, corrupt)), Options{Concurrency: 4})
	require.NoError(t, err)
	require.Len(t, outcomes, 100*5)
	assert.Equal(t, int64(100), calls.Load(), "each raster is opened once for all its rules")

	for _, o := range outcomes {
		if o.Item == items[41].ID() {
			assert.Equal(t, types.VerdictError, o.Verdict)
			assert.Contains(t, o.Error, "truncated")
			continue
		}
		assert.Equal(t, types.VerdictPass, o.Verdict, "%s %s", o.Item, o.Rule)
	}
}

func TestEvaluate_AllEqualsUnion(t *testing.T) {
	items := rasterItems(5)
	var calls atomic.Int64
	base := baseContext(countingOpener(&calls, nil))

	all, err := Evaluate(context.Background(), items, []types.Rule{types.RuleAll}, base, Options{})
	require.NoError(t, err)
	union, err := Evaluate(context.Background(), items, []types.Rule{
		types.RuleNoData, types.RulePixelSize, types.RuleBandsLen, types.RuleRadBalance, types.RuleDigLevel,
	}, base, Options{})
	require.NoError(t, err)

	assert.Equal(t, all, union)
}

func TestEvaluate_DeterministicOrder(t *testing.T) {
	items := append(rasterItems(20), types.Table{Schema: "carto", Name: "roads"})
	var calls atomic.Int64
	base := baseContext(countingOpener(&calls, nil))

	sequential, err := Evaluate(context.Background(), items, []types.Rule{types.RuleAll}, base, Options{Concurrency: 1})
	require.NoError(t, err)
	parallel, err := Evaluate(context.Background(), items, []types.Rule{types.RuleAll}, base, Options{Concurrency: 8})
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
	require.Len(t, sequential, 21*5)
	assert.Equal(t, types.RulePixelSize, sequential[0].Rule)
	assert.Equal(t, types.RuleNoData, sequential[4].Rule)
	assert.Equal(t, "carto.roads", sequential[100].Item)
	assert.Equal(t, types.RuleInvalid, sequential[100].Rule)
}

func TestEvaluate_SkipsOtherDomain(t *testing.T) {
	var calls atomic.Int64
	outcomes, err := Evaluate(context.Background(), rasterItems(2), []types.Rule{types.RuleNull, types.RuleBandsLen},
		baseContext(countingOpener(&calls, nil)), Options{})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, types.RuleBandsLen, o.Rule)
	}
}

func TestEvaluate_ToleranceApplied(t *testing.T) {
	var calls atomic.Int64
	base := baseContext(countingOpener(&calls, nil))
	base.Tolerances = map[types.Rule]types.Tolerance{types.RuleBandsLen: {Conform: 4}}

	outcomes, err := Evaluate(context.Background(), rasterItems(1), []types.Rule{types.RuleBandsLen}, base, Options{})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, types.VerdictFail, outcomes[0].Verdict)
	assert.Equal(t, "3", outcomes[0].Measured)
}

func TestEvaluate_OnOutcome(t *testing.T) {
	var (
		mu   sync.Mutex
		seen int
	)
	var calls atomic.Int64
	_, err := Evaluate(context.Background(), rasterItems(10), []types.Rule{types.RuleAll},
		baseContext(countingOpener(&calls, nil)),
		Options{Concurrency: 3, OnOutcome: func(*types.Outcome) {
			mu.Lock()
			defer mu.Unlock()
			seen++
		}})
	require.NoError(t, err)
	assert.Equal(t, 50, seen)
}

func TestEvaluate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	outcomes, err := Evaluate(ctx, rasterItems(10), []types.Rule{types.RuleAll},
		baseContext(countingOpener(&calls, nil)), Options{Concurrency: 2})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, outcomes)
}

func TestEvaluateItem_NilOutcome(t *testing.T) {
	item := types.RasterFile{Path: "a.tif"}
	o, err := Check(context.Background(), testDomain, "empty", Context{Item: item})
	require.NoError(t, err)
	assert.Nil(t, o)
}
