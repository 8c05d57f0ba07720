// Package authenticity estimates how likely an interview recording shows the
// candidate reading from a script or second screen. The heuristic buckets the
// detected face position of sampled frames into gaze zones and scores the
// resulting attention pattern. Frame sampling sits behind the Sampler
// interface so the scoring rules stay deterministic and testable offline.
package authenticity

import (
	"context"
	"fmt"
	"image"
	"math"

	"go.uber.org/zap"

	"github.com/talentgate/interview-pipeline/internal/models"
)

// StatusError marks an assessment that could not be performed. It carries
// risk score 0 and never aborts the pipeline.
const StatusError = "error"

// centerThreshold is the face-centroid offset, as a fraction of the frame
// dimension, within which a gaze counts as at-camera.
const centerThreshold = 0.15

// Frame is one sampled video frame. Face is nil when no face was localized.
type Frame struct {
	Width  int
	Height int
	Face   *image.Rectangle
}

// Clip is the sampled view of a video that the scorer works from.
type Clip struct {
	FPS    float64
	Frames []Frame
}

// Sampler produces a sampled clip from a video file.
type Sampler interface {
	Sample(ctx context.Context, videoPath string) (Clip, error)
}

// Detail is the per-video evidence behind an assessment. Percentages are over
// face-detected frames only.
type Detail struct {
	GazeAtCameraPercent       float64  `json:"gaze_at_camera_percent"`
	GazeLeftPercent           float64  `json:"gaze_left_percent"`
	GazeRightPercent          float64  `json:"gaze_right_percent"`
	GazeUpPercent             float64  `json:"gaze_up_percent"`
	GazeDownPercent           float64  `json:"gaze_down_percent"`
	HorizontalScanCount       int      `json:"horizontal_scan_count"`
	HorizontalScansPerMinute  float64  `json:"horizontal_scans_per_minute"`
	VerticalScanCount         int      `json:"vertical_scan_count"`
	PrimaryOffCameraDirection string   `json:"primary_off_camera_direction"`
	Confidence                int      `json:"confidence"`
	Flags                     []string `json:"flags"`
}

// Assessment is the outcome for one video.
type Assessment struct {
	Status    string `json:"status"`
	RiskScore int    `json:"risk_score"`
	Detail    Detail `json:"detail"`
}

// Scorer turns sampled clips into risk assessments.
type Scorer struct {
	sampler Sampler
	logger  *zap.Logger
}

func NewScorer(sampler Sampler, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{sampler: sampler, logger: logger}
}

// Assess analyzes one video. It always returns a usable Assessment: sampling
// failures and face-free videos come back as an error-status result with risk
// score 0 so the calling pipeline can proceed.
func (s *Scorer) Assess(ctx context.Context, videoPath string) Assessment {
	clip, err := s.sampler.Sample(ctx, videoPath)
	if err != nil {
		s.logger.Warn("authenticity sampling failed",
			zap.String("video", videoPath),
			zap.Error(err),
		)
		return errorAssessment(fmt.Sprintf("video analysis failed: %v", err))
	}
	return Score(clip)
}

type zone int

const (
	zoneCenter zone = iota
	zoneLeft
	zoneRight
	zoneUp
	zoneDown
)

// Score runs the gaze heuristic over an already-sampled clip.
func Score(clip Clip) Assessment {
	var faceFrames, centerFrames, leftFrames, rightFrames, upFrames, downFrames int
	var hScans, vScans int
	prevH, prevV := zoneCenter, zoneCenter
	var havePrevH, havePrevV bool

	for _, frame := range clip.Frames {
		if frame.Face == nil || frame.Width == 0 || frame.Height == 0 {
			continue
		}
		faceFrames++

		faceCenterX := frame.Face.Min.X + frame.Face.Dx()/2
		faceCenterY := frame.Face.Min.Y + frame.Face.Dy()/2

		h := horizontalZone(faceCenterX, frame.Width)
		switch h {
		case zoneCenter:
			centerFrames++
		case zoneLeft:
			leftFrames++
		case zoneRight:
			rightFrames++
		}

		v := verticalZone(faceCenterY, frame.Height)
		switch v {
		case zoneUp:
			upFrames++
		case zoneDown:
			downFrames++
		}

		// A left-to-right (or back) jump between consecutive analyzed
		// frames is one scanning event, the signature of reading a line.
		if havePrevH && prevH != h && prevH != zoneCenter && h != zoneCenter {
			hScans++
		}
		if havePrevV && prevV != v && prevV != zoneCenter && v != zoneCenter {
			vScans++
		}
		prevH, havePrevH = h, true
		prevV, havePrevV = v, true
	}

	if faceFrames == 0 {
		return errorAssessment("no face detected in video")
	}

	detail := Detail{
		GazeAtCameraPercent: percent(centerFrames, faceFrames),
		GazeLeftPercent:     percent(leftFrames, faceFrames),
		GazeRightPercent:    percent(rightFrames, faceFrames),
		GazeUpPercent:       percent(upFrames, faceFrames),
		GazeDownPercent:     percent(downFrames, faceFrames),
		HorizontalScanCount: hScans,
		VerticalScanCount:   vScans,
		Confidence:          confidence(faceFrames, len(clip.Frames)),
	}

	if clip.FPS > 0 && len(clip.Frames) > 0 {
		durationSeconds := float64(len(clip.Frames)) / clip.FPS
		detail.HorizontalScansPerMinute = round1(float64(hScans) / durationSeconds * 60)
	}

	offCamera := detail.GazeLeftPercent + detail.GazeRightPercent + detail.GazeUpPercent + detail.GazeDownPercent
	direction, share := dominantDirection(detail)
	detail.PrimaryOffCameraDirection = direction

	risk := 0

	switch {
	case offCamera > 70:
		risk += 40
		detail.Flags = append(detail.Flags, fmt.Sprintf("very high off-camera time (%.1f%%)", offCamera))
	case offCamera > 50:
		risk += 30
		detail.Flags = append(detail.Flags, fmt.Sprintf("high off-camera time (%.1f%%)", offCamera))
	case offCamera > 30:
		risk += 15
	}

	switch {
	case direction != "" && share > 40:
		risk += 30
		detail.Flags = append(detail.Flags, fmt.Sprintf("consistent gaze to %s (%.1f%%)", direction, share))
	case direction != "" && share > 25:
		risk += 20
		detail.Flags = append(detail.Flags, fmt.Sprintf("frequent gaze to %s (%.1f%%)", direction, share))
	}

	switch {
	case detail.HorizontalScansPerMinute > 15:
		risk += 20
		detail.Flags = append(detail.Flags, fmt.Sprintf("high horizontal scanning (%.0f/min, reading pattern)", detail.HorizontalScansPerMinute))
	case detail.HorizontalScansPerMinute > 8:
		risk += 10
		detail.Flags = append(detail.Flags, fmt.Sprintf("moderate horizontal scanning (%.0f/min)", detail.HorizontalScansPerMinute))
	}

	switch {
	case detail.GazeDownPercent > 30:
		risk += 10
		detail.Flags = append(detail.Flags, fmt.Sprintf("frequent downward gaze (%.1f%%, possible paper)", detail.GazeDownPercent))
	case detail.GazeDownPercent > 20:
		risk += 5
	}

	status := models.AuthenticityClear
	switch {
	case risk >= 60:
		status = models.AuthenticityHighRisk
	case risk >= 35:
		status = models.AuthenticitySuspicious
	}

	return Assessment{Status: status, RiskScore: risk, Detail: detail}
}

func horizontalZone(faceCenterX, width int) zone {
	offset := faceCenterX - width/2
	threshold := float64(width) * centerThreshold
	switch {
	case math.Abs(float64(offset)) < threshold:
		return zoneCenter
	case offset < 0:
		return zoneLeft
	default:
		return zoneRight
	}
}

func verticalZone(faceCenterY, height int) zone {
	offset := faceCenterY - height/2
	threshold := float64(height) * centerThreshold
	switch {
	case math.Abs(float64(offset)) < threshold:
		return zoneCenter
	case offset < 0:
		return zoneUp
	default:
		return zoneDown
	}
}

// dominantDirection returns the single off-camera direction with the largest
// share. A tie means no direction dominates, so no consistency penalty.
func dominantDirection(d Detail) (string, float64) {
	shares := []struct {
		name  string
		value float64
	}{
		{"left", d.GazeLeftPercent},
		{"right", d.GazeRightPercent},
		{"up", d.GazeUpPercent},
		{"down", d.GazeDownPercent},
	}
	best := shares[0]
	tied := false
	for _, s := range shares[1:] {
		switch {
		case s.value > best.value:
			best = s
			tied = false
		case s.value == best.value:
			tied = true
		}
	}
	if best.value == 0 || tied {
		return "", 0
	}
	return best.name, best.value
}

// confidence tiers the face detection rate into a coarse reliability figure.
func confidence(faceFrames, sampledFrames int) int {
	if sampledFrames == 0 {
		return 0
	}
	rate := float64(faceFrames) / float64(sampledFrames) * 100
	switch {
	case rate >= 80:
		return 90
	case rate >= 60:
		return 75
	case rate >= 40:
		return 60
	default:
		return 40
	}
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round1(float64(part) / float64(whole) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func errorAssessment(flag string) Assessment {
	return Assessment{
		Status:    StatusError,
		RiskScore: 0,
		Detail: Detail{
			PrimaryOffCameraDirection: "unknown",
			Flags:                     []string{flag},
		},
	}
}
