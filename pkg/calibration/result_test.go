package calibration

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResultSaveLoad(t *testing.T) {
	r := &Result{
		Camera: Camera{
			Intrinsics: Intrinsics{Width: 1280, Height: 720, Fx: 912.4, Fy: 911.9, Ppx: 639.2, Ppy: 361.7},
			Distortion: Distortion{RadialK1: -0.31, RadialK2: 0.12, TangentialP1: 0.0004, TangentialP2: -0.0007, RadialK3: -0.02},
		},
		ReprojectionError: 0.387,
		Frames:            14,
		CalibratedAt:      time.Date(2024, 3, 9, 18, 4, 5, 0, time.UTC),
		Board:             DefaultBoardGeometry,
	}

	p := filepath.Join(t.TempDir(), "camera.yaml")
	if err := r.Save(p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := LoadResult(p)
	if err != nil {
		t.Fatalf("LoadResult failed: %v", err)
	}
	if got.Camera != r.Camera || got.ReprojectionError != r.ReprojectionError || got.Frames != r.Frames || got.Board != r.Board {
		t.Fatalf("got %+v, want %+v", got, r)
	}
	if !got.CalibratedAt.Equal(r.CalibratedAt) {
		t.Fatalf("calibratedAt %v, want %v", got.CalibratedAt, r.CalibratedAt)
	}
}

func TestLoadResultRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadResult(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	p := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(p, []byte("camera:\n  intrinsics:\n    width: 0\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadResult(p); err == nil {
		t.Fatalf("expected error for invalid intrinsics")
	}
}

func TestIntrinsicsMatrix(t *testing.T) {
	in := Intrinsics{Width: 640, Height: 480, Fx: 500, Fy: 510, Ppx: 320, Ppy: 240}
	if got := IntrinsicsFromMatrix(in.Matrix(), image.Pt(640, 480)); got != in {
		t.Fatalf("got %+v, want %+v", got, in)
	}
}

func TestNewDistortion(t *testing.T) {
	d, err := NewDistortion([]float64{0.1, 0.2})
	if err != nil {
		t.Fatalf("NewDistortion failed: %v", err)
	}
	if d.RadialK1 != 0.1 || d.RadialK2 != 0.2 || d.RadialK3 != 0 {
		t.Fatalf("unexpected distortion %+v", d)
	}
	if len(d.Parameters()) != 5 {
		t.Fatalf("expected 5 parameters")
	}
	if _, err := NewDistortion(make([]float64, 8)); err == nil {
		t.Fatalf("expected error for 8 coefficients")
	}
}
