package renderer

import (
	"testing"
)

func TestLetterboxLandscapeWindow(t *testing.T) {
	vp := Letterbox(1280, 600, 16.0/9.0)

	if vp.Height != 600 {
		t.Errorf("Height: expected 600, got %v", vp.Height)
	}
	if vp.Width != 1067 {
		t.Errorf("Width: expected 1067, got %v", vp.Width)
	}
	if vp.Y != 0 {
		t.Errorf("Y: expected 0, got %v", vp.Y)
	}
	left := vp.X
	right := 1280 - (vp.X + vp.Width)
	if d := left - right; d < -1 || d > 1 {
		t.Errorf("margins: expected equal, got left %v right %v", left, right)
	}
}

func TestLetterboxPortraitWindow(t *testing.T) {
	vp := Letterbox(600, 1280, 16.0/9.0)

	if vp.Width != 600 {
		t.Errorf("Width: expected 600, got %v", vp.Width)
	}
	if vp.Height != 338 { // 600 / (16/9) = 337.5
		t.Errorf("Height: expected 338, got %v", vp.Height)
	}
	if vp.X != 0 {
		t.Errorf("X: expected 0, got %v", vp.X)
	}
	if vp.Y != (1280-338)/2 {
		t.Errorf("Y: expected %v, got %v", (1280-338)/2, vp.Y)
	}
}

func TestLetterboxExactFit(t *testing.T) {
	vp := Letterbox(1920, 1080, 16.0/9.0)
	expected := Viewport{0, 0, 1920, 1080}
	if vp != expected {
		t.Errorf("expected %v, got %v", expected, vp)
	}
}

func TestLetterboxDegenerate(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		aspect float64
		wantW  int
		wantH  int
	}{
		{"minimised window", 0, 0, 2, 0, 0},
		{"unknown aspect", 800, 600, 0, 800, 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vp := Letterbox(tt.w, tt.h, tt.aspect)
			if vp.Width != tt.wantW || vp.Height != tt.wantH {
				t.Errorf("expected %vx%v, got %vx%v", tt.wantW, tt.wantH, vp.Width, vp.Height)
			}
		})
	}
}

func TestAspect(t *testing.T) {
	if a := Aspect(100, 50); a != 2 {
		t.Errorf("Aspect: expected 2, got %v", a)
	}
	if a := Aspect(100, 0); a != 0 {
		t.Errorf("Aspect: expected 0, got %v", a)
	}
}
