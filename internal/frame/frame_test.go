package frame

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/shoalforge/uvgo/internal/bitio"
	"github.com/shoalforge/uvgo/internal/cuarray"
	"github.com/shoalforge/uvgo/internal/picture"
	"github.com/shoalforge/uvgo/internal/reflist"
	"github.com/shoalforge/uvgo/internal/uvgoerr"
)

func newController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	c, err := NewController(cfg, nil)
	require.NoError(t, err)
	return c
}

func TestNextFrame_NoGOPUsesIntraPeriodModulus(t *testing.T) {
	c := newController(t, Config{IntraPeriod: 4})
	var pocs []int64
	var iraps []bool
	for i := 0; i < 9; i++ {
		info := c.NextFrame()
		pocs = append(pocs, info.POC)
		iraps = append(iraps, info.IsIRAP)
	}
	require.Equal(t, []int64{0, 1, 2, 3, 0, 1, 2, 3, 0}, pocs)
	require.Equal(t, []bool{true, false, false, false, true, false, false, false, true}, iraps)
}

func TestNextFrame_OpenGOPPOCFormula(t *testing.T) {
	c := newController(t, Config{GOPLen: 8, OpenGOP: true, IntraPeriod: 64, GOP: DefaultGOP8})
	first := c.NextFrame()
	require.EqualValues(t, 0, first.POC)
	require.True(t, first.IsIRAP)

	// Frames 1..8 cover the first GOP: POC = framenum - framenum %
	// gop_len + poc_offset[gop_idx] with framenum = num-1.
	want := []int64{8, 4, 2, 1, 3, 6, 5, 7}
	for i, w := range want {
		info := c.NextFrame()
		require.Equal(t, w, info.POC, "frame %d", i+1)
	}
}

func TestNextFrame_ClosedGOPInsertsExtraIDR(t *testing.T) {
	c := newController(t, Config{GOPLen: 8, IntraPeriod: 8, GOP: DefaultGOP8})
	var zeroPOCs []int
	for i := 0; i < 20; i++ {
		info := c.NextFrame()
		if info.POC == 0 {
			zeroPOCs = append(zeroPOCs, i)
			require.True(t, info.IsIRAP)
			require.Contains(t, []NALType{NALIDRNoLP, NALIDRWithRADL}, info.Type,
				"closed GOP keyframes must be IDR")
		}
	}
	// The extra IDR lands every intra_period+1 frames after frame 0.
	require.Equal(t, []int{0, 9, 18}, zeroPOCs)
}

func TestNextFrame_RASLBeforeIRAPInOpenGOP(t *testing.T) {
	c := newController(t, Config{GOPLen: 8, OpenGOP: true, IntraPeriod: 8, GOP: DefaultGOP8})
	sawRASL := false
	sawCRA := false
	for i := 0; i < 24; i++ {
		info := c.NextFrame()
		if info.Type == NALCRA {
			sawCRA = true
		}
		if info.Type == NALRASL {
			sawRASL = true
			require.Less(t, info.POC, info.IRAPPOC, "RASL pictures lead their IRAP")
		}
	}
	require.True(t, sawCRA, "open GOP must produce CRA keyframes")
	require.True(t, sawRASL, "open GOP must produce leading RASL pictures")
}

func TestClosedGOPIntraPeriodOneGuard(t *testing.T) {
	// Pins the guard around IDR_W_RADL for intra_period == 1: frame 0
	// stays IDR_N_LP, every later frame flips to IDR_W_RADL.
	c := newController(t, Config{IntraPeriod: 1})

	first := c.NextFrame()
	require.True(t, first.IsIRAP)
	require.Equal(t, NALIDRNoLP, first.Type, "frame 0 must not take the W_RADL patch")

	for i := 1; i < 5; i++ {
		info := c.NextFrame()
		require.True(t, info.IsIRAP)
		require.Equal(t, NALIDRWithRADL, info.Type, "frame %d", i)
	}
}

func addRef(t *testing.T, refs *reflist.List, poc int64) {
	t.Helper()
	pic := picture.New(64, 64, picture.Chroma420, 8)
	pic.POC = poc
	require.NoError(t, refs.Add(reflist.Entry{Pic: pic, Grid: cuarray.New(64, 64), POC: poc}))
}

func TestPruneRefs_GOPKeepsOnlyReachablePOCs(t *testing.T) {
	c := newController(t, Config{GOPLen: 8, OpenGOP: true, IntraPeriod: 64, GOP: DefaultGOP8})
	refs := reflist.New()
	for _, poc := range []int64{0, 2, 4, 6, 8} {
		addRef(t, refs, poc)
	}

	// GOP entry for POC 12 (offset index 1): ref_neg {4, 12}, ref_pos {4}.
	info := Info{Num: 6, POC: 12, GOPOffset: 1, Type: NALTrail}
	c.PruneRefs(info, refs, nil)

	require.ElementsMatch(t, []int64{0, 8}, refs.POCs(),
		"only POC-12-4=8 and POC-12-12=0 are reachable")
}

func TestPruneRefs_IDRDropsEverything(t *testing.T) {
	c := newController(t, Config{GOPLen: 8, IntraPeriod: 8, GOP: DefaultGOP8})
	refs := reflist.New()
	addRef(t, refs, 1)
	addRef(t, refs, 2)

	c.PruneRefs(Info{Num: 9, POC: 0, Type: NALIDRNoLP}, refs, nil)
	require.Empty(t, refs.POCs())
}

func TestPruneRefs_WindowBlocksRemoval(t *testing.T) {
	c := newController(t, Config{RefFrames: 1})
	refs := reflist.New()
	addRef(t, refs, 0)
	addRef(t, refs, 1)
	addRef(t, refs, 2)

	w := &Window{}
	w.Add(5, []int64{0})

	c.PruneRefs(Info{Num: 3, POC: 3, Type: NALTrail}, refs, w.InUse)
	require.Contains(t, refs.POCs(), int64(0),
		"an entry a window frame still references must survive pruning")
}

func TestBuildRefLists_SliceTypeDecision(t *testing.T) {
	c := newController(t, Config{GOPLen: 8, OpenGOP: true, IntraPeriod: 64, GOP: DefaultGOP8})
	refs := reflist.New()
	addRef(t, refs, 0)
	addRef(t, refs, 8)

	info := Info{Num: 2, POC: 4}
	l0, l1 := c.BuildRefLists(&info, refs)
	require.Equal(t, []int64{0}, l0)
	require.Equal(t, []int64{8}, l1)
	require.Equal(t, bitio.SliceB, info.SliceType)

	info = Info{Num: 1, POC: 8}
	l0, l1 = c.BuildRefLists(&info, refs)
	require.Equal(t, []int64{0}, l0)
	require.Empty(t, l1)
	require.Equal(t, bitio.SliceP, info.SliceType)

	info = Info{Num: 0, POC: 0, IsIRAP: true}
	c.BuildRefLists(&info, refs)
	require.Equal(t, bitio.SliceI, info.SliceType)
}

func TestROIFile_RoundTripAndErrors(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "roi.txt")
	require.NoError(t, os.WriteFile(good, []byte("2 2\n-3 0\n5 1\n"), 0o644))
	m, err := LoadROIFile(good)
	require.NoError(t, err)
	require.Equal(t, int8(-3), m.At(0, 0, 4, 4))
	require.Equal(t, int8(1), m.At(3, 3, 4, 4))

	truncated := filepath.Join(dir, "short.txt")
	require.NoError(t, os.WriteFile(truncated, []byte("2 2\n1 2 3\n"), 0o644))
	_, err = LoadROIFile(truncated)
	require.True(t, errors.Is(err, uvgoerr.ErrBadInput))

	huge := filepath.Join(dir, "huge.txt")
	require.NoError(t, os.WriteFile(huge, []byte("20000 1\n"), 0o644))
	_, err = LoadROIFile(huge)
	require.True(t, errors.Is(err, uvgoerr.ErrBadInput))
}

func TestNewController_ROIConflictIsBadConfig(t *testing.T) {
	_, err := NewController(Config{ROIFilePath: "x.txt", ROI: []int8{0}}, nil)
	require.True(t, errors.Is(err, uvgoerr.ErrBadConfig))
}

func TestERPAQPOffset_PolesCoarser(t *testing.T) {
	equator := ERPAQPOffset(8, 17)
	pole := ERPAQPOffset(0, 17)
	require.InDelta(t, 0, equator, 0.05, "the equator row takes no offset")
	require.Greater(t, pole, equator, "pole rows take a positive (coarser) offset")
}

func TestVarianceAQPOffsets_SignFollowsVariance(t *testing.T) {
	flat := []float64{100, 100, 100, 101}
	busy := []float64{0, 250, 3, 240, 9, 255, 1, 200}
	out := VarianceAQPOffsets([][]float64{flat, busy}, 1.0)
	require.Len(t, out, 2)
	require.Negative(t, out[0], "low-variance CTU gets a finer QP")
	require.Positive(t, out[1], "high-variance CTU gets a coarser QP")
}

func TestWindow_PopsInSubmissionOrder(t *testing.T) {
	w := &Window{}
	w.Add(0, nil)
	w.Add(1, nil)
	w.MarkDone(1)

	_, ok := w.PopHead()
	require.False(t, ok, "head not done: nothing pops")

	w.MarkDone(0)
	n, ok := w.PopHead()
	require.True(t, ok)
	require.Equal(t, 0, n)
	n, ok = w.PopHead()
	require.True(t, ok)
	require.Equal(t, 1, n)
}
