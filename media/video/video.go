// Package video decodes video files frame by frame with OpenCV.
package video

import (
	"fmt"
	"image"
	"io"
	"log/slog"

	"gocv.io/x/gocv"

	"atsuki/media"
)

// Source reads a video file one frame per Next call. It implements
// media.Source.
type Source struct {
	path    string
	capture *gocv.VideoCapture
	frame   gocv.Mat
	rgba    gocv.Mat
	width   int
	height  int
	frames  int
	pacer   *media.Pacer
}

// Open opens path and reads its frame size.
func Open(path string) (*Source, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %q: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("open video %q: no decoder accepted the file", path)
	}

	w := int(capture.Get(gocv.VideoCaptureFrameWidth))
	h := int(capture.Get(gocv.VideoCaptureFrameHeight))
	if w <= 0 || h <= 0 {
		capture.Close()
		return nil, fmt.Errorf("open video %q: invalid frame size %dx%d", path, w, h)
	}
	fps := capture.Get(gocv.VideoCaptureFPS)
	slog.Info("video opened", "path", path, "size", fmt.Sprintf("%dx%d", w, h), "fps", fps)

	return &Source{
		path:    path,
		capture: capture,
		frame:   gocv.NewMat(),
		rgba:    gocv.NewMat(),
		width:   w,
		height:  h,
		pacer:   media.NewPacer(fps),
	}, nil
}

// Next decodes the next frame, converts it to RGBA and flips it so row 0
// is the bottom row. Frames are paced at the file's frame rate: before the
// next one is due Next returns a nil image. It returns io.EOF after the
// last frame.
func (s *Source) Next() (*image.RGBA, error) {
	if !s.pacer.Ready() {
		return nil, nil
	}
	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		slog.Debug("video drained", "path", s.path, "frames", s.frames)
		return nil, io.EOF
	}
	gocv.CvtColor(s.frame, &s.rgba, gocv.ColorBGRToRGBA)
	gocv.Flip(s.rgba, &s.rgba, 0)

	if s.rgba.Cols() != s.width || s.rgba.Rows() != s.height {
		return nil, fmt.Errorf("video %q: frame %d is %dx%d, expected %dx%d",
			s.path, s.frames, s.rgba.Cols(), s.rgba.Rows(), s.width, s.height)
	}
	s.frames++
	s.pacer.Advance()
	return &image.RGBA{
		Pix:    s.rgba.ToBytes(),
		Stride: 4 * s.width,
		Rect:   image.Rect(0, 0, s.width, s.height),
	}, nil
}

func (s *Source) Size() (int, int) { return s.width, s.height }

func (s *Source) Close() error {
	slog.Info("video closed", "path", s.path, "frames", s.frames)
	s.frame.Close()
	s.rgba.Close()
	return s.capture.Close()
}
