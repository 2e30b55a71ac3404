package frame

import (
	"bufio"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/stat"

	"github.com/shoalforge/uvgo/internal/uvgoerr"
)

// maxROIDim bounds the ROI map dimensions; larger inputs fail the
// frame with BadInput.
const maxROIDim = 10000

func validateROIConfig(cfg Config) error {
	if cfg.ROIFilePath != "" && cfg.ROI != nil {
		return uvgoerr.BadConfig("ROI file %q supplied together with a pre-populated ROI array", cfg.ROIFilePath)
	}
	return nil
}

// ROIMap is a delta-QP grid stretched over the picture's CTUs.
type ROIMap struct {
	Width, Height int
	DQP           []int8
}

// LoadROIFile parses a text ROI map: two dimensions followed by
// width*height delta-QP values.
func LoadROIFile(path string) (*ROIMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, uvgoerr.BadInput("opening ROI file %q: %v", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var w, h int
	if _, err := fmt.Fscan(r, &w, &h); err != nil {
		return nil, uvgoerr.BadInput("ROI file %q: missing dimensions: %v", path, err)
	}
	if w <= 0 || h <= 0 || w > maxROIDim || h > maxROIDim {
		return nil, uvgoerr.BadInput("ROI file %q: dimensions %dx%d out of range", path, w, h)
	}
	m := &ROIMap{Width: w, Height: h, DQP: make([]int8, w*h)}
	for i := range m.DQP {
		var v int
		if _, err := fmt.Fscan(r, &v); err != nil {
			return nil, uvgoerr.BadInput("ROI file %q: value %d of %d: %v", path, i, w*h, err)
		}
		if v < -51 || v > 51 {
			return nil, uvgoerr.BadInput("ROI file %q: delta QP %d out of range", path, v)
		}
		m.DQP[i] = int8(v)
	}
	return m, nil
}

// At samples the map for the CTU at (x, y) of a ctusX x ctusY frame,
// nearest-neighbor stretched.
func (m *ROIMap) At(x, y, ctusX, ctusY int) int8 {
	mx := x * m.Width / ctusX
	my := y * m.Height / ctusY
	return m.DQP[my*m.Width+mx]
}

// ERPAQPOffset is the equirectangular-projection adaptive-QP curve:
// rows near the poles are distorted by the projection and can
// take a coarser QP, following -K * log2(cos((y - h/2 + 1/2) * pi/h))
// with K = 3.0, evaluated at the CTU row's center.
func ERPAQPOffset(ctuRow, frameHeightCTUs int) float64 {
	const k = 3.0
	y := float64(ctuRow) + 0.5
	h := float64(frameHeightCTUs)
	c := math.Cos((y - h/2) * math.Pi / h)
	if c <= 0 {
		c = 1e-9
	}
	return -k * math.Log2(c)
}

// VarianceAQPOffsets computes the per-CTU variance-adaptive delta QP:
// vaq * 0.1 * (log(ctu_variance) - log(frame_variance)), where the
// frame variance is the mean of the CTU variances. ctuPixels holds
// one sample slice per CTU.
func VarianceAQPOffsets(ctuPixels [][]float64, strength float64) []float64 {
	if len(ctuPixels) == 0 {
		return nil
	}
	vars := make([]float64, len(ctuPixels))
	for i, px := range ctuPixels {
		if len(px) < 2 {
			vars[i] = 1
			continue
		}
		vars[i] = stat.Variance(px, nil)
		if vars[i] < 1 {
			vars[i] = 1 // flat blocks: clamp so the log stays finite
		}
	}
	frameVar := stat.Mean(vars, nil)
	if frameVar < 1 {
		frameVar = 1
	}

	out := make([]float64, len(vars))
	for i, v := range vars {
		out[i] = strength * 0.1 * (math.Log(v) - math.Log(frameVar))
	}
	return out
}
