package calibration

import (
	"bytes"
	"image"
	"math"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Intrinsics are the pinhole parameters of a camera, in pixels.
type Intrinsics struct {
	Width  int     `json:"width" yaml:"width"`
	Height int     `json:"height" yaml:"height"`
	Fx     float64 `json:"fx" yaml:"fx"`
	Fy     float64 `json:"fy" yaml:"fy"`
	Ppx    float64 `json:"ppx" yaml:"ppx"`
	Ppy    float64 `json:"ppy" yaml:"ppy"`
}

// CheckValid checks that the intrinsics describe a usable camera.
func (i Intrinsics) CheckValid() error {
	if i.Width <= 0 || i.Height <= 0 {
		return pkgerrors.Errorf("invalid image size %dx%d", i.Width, i.Height)
	}
	if !(i.Fx > 0) || !(i.Fy > 0) {
		return pkgerrors.Errorf("invalid focal length fx=%v fy=%v", i.Fx, i.Fy)
	}
	if math.IsNaN(i.Ppx) || math.IsNaN(i.Ppy) || math.IsInf(i.Ppx, 0) || math.IsInf(i.Ppy, 0) {
		return pkgerrors.Errorf("invalid principal point (%v, %v)", i.Ppx, i.Ppy)
	}
	return nil
}

// Matrix returns the row-major 3x3 camera matrix.
func (i Intrinsics) Matrix() [9]float64 {
	return [9]float64{
		i.Fx, 0, i.Ppx,
		0, i.Fy, i.Ppy,
		0, 0, 1,
	}
}

// IntrinsicsFromMatrix builds intrinsics from a row-major camera matrix.
func IntrinsicsFromMatrix(m [9]float64, size image.Point) Intrinsics {
	return Intrinsics{
		Width:  size.X,
		Height: size.Y,
		Fx:     m[0],
		Fy:     m[4],
		Ppx:    m[2],
		Ppy:    m[5],
	}
}

// Distortion holds Brown-Conrady coefficients.
type Distortion struct {
	RadialK1     float64 `json:"rk1" yaml:"rk1"`
	RadialK2     float64 `json:"rk2" yaml:"rk2"`
	TangentialP1 float64 `json:"tp1" yaml:"tp1"`
	TangentialP2 float64 `json:"tp2" yaml:"tp2"`
	RadialK3     float64 `json:"rk3" yaml:"rk3"`
}

// Parameters returns the coefficients in OpenCV order (k1, k2, p1, p2, k3).
func (d Distortion) Parameters() []float64 {
	return []float64{d.RadialK1, d.RadialK2, d.TangentialP1, d.TangentialP2, d.RadialK3}
}

// NewDistortion builds a Distortion from OpenCV ordered coefficients.
// Missing trailing coefficients are zero; extra ones are rejected.
func NewDistortion(params []float64) (Distortion, error) {
	if len(params) > 5 {
		return Distortion{}, pkgerrors.Errorf("expected at most 5 distortion coefficients, got %d", len(params))
	}
	p := make([]float64, 5)
	copy(p, params)
	return Distortion{
		RadialK1:     p[0],
		RadialK2:     p[1],
		TangentialP1: p[2],
		TangentialP2: p[3],
		RadialK3:     p[4],
	}, nil
}

// Camera is a calibrated camera model.
type Camera struct {
	Intrinsics Intrinsics `json:"intrinsics" yaml:"intrinsics"`
	Distortion Distortion `json:"distortion" yaml:"distortion"`
}

// Result is the outcome of a calibration solve.
type Result struct {
	Camera            Camera        `json:"camera" yaml:"camera"`
	ReprojectionError float64       `json:"reprojectionError" yaml:"reprojection_error"`
	Frames            int           `json:"frames" yaml:"frames"`
	CalibratedAt      time.Time     `json:"calibratedAt" yaml:"calibrated_at"`
	Board             BoardGeometry `json:"board" yaml:"board"`
}

// LogrusFields returns the fields used to report a result.
func (r *Result) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"reprojectionError": r.ReprojectionError,
		"frames":            r.Frames,
		"cameraMatrix":      r.Camera.Intrinsics.Matrix(),
		"distortion":        r.Camera.Distortion.Parameters(),
	}
}

// Save writes the result as YAML.
func (r *Result) Save(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return pkgerrors.Wrapf(err, "failed to encode calibration result")
	}
	if err := enc.Close(); err != nil {
		return pkgerrors.Wrapf(err, "failed to encode calibration result")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write calibration result to %s", path)
	}
	return nil
}

// LoadResult reads a result written by Save.
func LoadResult(path string) (*Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to read calibration result from %s", path)
	}
	var r Result
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal calibration result from %s", path)
	}
	if err := r.Camera.Intrinsics.CheckValid(); err != nil {
		return nil, pkgerrors.Wrapf(err, "calibration result in %s is invalid", path)
	}
	return &r, nil
}
