package authenticity

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// defaultStride keeps analysis near 10 FPS for typical 30 FPS webcam video.
const defaultStride = 3

// OpenCVSampler samples video frames and localizes faces with a Haar cascade.
type OpenCVSampler struct {
	// CascadeFile is the path to a frontal-face Haar cascade XML file.
	CascadeFile string
	// Stride keeps every Nth frame. Zero means defaultStride.
	Stride int
}

func NewOpenCVSampler(cascadeFile string) *OpenCVSampler {
	return &OpenCVSampler{CascadeFile: cascadeFile, Stride: defaultStride}
}

func (s *OpenCVSampler) Sample(ctx context.Context, videoPath string) (Clip, error) {
	stride := s.Stride
	if stride <= 0 {
		stride = defaultStride
	}

	capture, err := gocv.VideoCaptureFile(videoPath)
	if err != nil {
		return Clip{}, fmt.Errorf("open video %s: %w", videoPath, err)
	}
	defer capture.Close()

	classifier := gocv.NewCascadeClassifier()
	defer classifier.Close()
	if !classifier.Load(s.CascadeFile) {
		return Clip{}, fmt.Errorf("load face cascade %s", s.CascadeFile)
	}

	clip := Clip{FPS: capture.Get(gocv.VideoCaptureFPS)}

	frame := gocv.NewMat()
	defer frame.Close()
	gray := gocv.NewMat()
	defer gray.Close()

	frameCount := 0
	for capture.Read(&frame) {
		if err := ctx.Err(); err != nil {
			return Clip{}, err
		}
		if frame.Empty() {
			continue
		}
		frameCount++
		if frameCount%stride != 0 {
			continue
		}

		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
		faces := classifier.DetectMultiScaleWithParams(
			gray, 1.1, 5, 0, image.Pt(30, 30), image.Pt(0, 0),
		)

		sampled := Frame{Width: frame.Cols(), Height: frame.Rows()}
		if face := largestFace(faces); face != nil {
			sampled.Face = face
		}
		clip.Frames = append(clip.Frames, sampled)
	}

	return clip, nil
}

// largestFace picks the detection closest to the camera.
func largestFace(faces []image.Rectangle) *image.Rectangle {
	var best *image.Rectangle
	bestArea := 0
	for i := range faces {
		area := faces[i].Dx() * faces[i].Dy()
		if area > bestArea {
			best = &faces[i]
			bestArea = area
		}
	}
	return best
}
