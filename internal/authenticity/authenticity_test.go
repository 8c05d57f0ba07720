package authenticity

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/talentgate/interview-pipeline/internal/models"
)

const (
	testWidth  = 640
	testHeight = 480
)

// faceFrame builds a frame with a 100x100 face centered at (cx, cy).
func faceFrame(cx, cy int) Frame {
	rect := image.Rect(cx-50, cy-50, cx+50, cy+50)
	return Frame{Width: testWidth, Height: testHeight, Face: &rect}
}

func centered() Frame { return faceFrame(testWidth/2, testHeight/2) }

// Offsets beyond 15% of the frame dimension leave the center zone.
func left() Frame  { return faceFrame(testWidth/2-150, testHeight/2) }
func right() Frame { return faceFrame(testWidth/2+150, testHeight/2) }
func down() Frame  { return faceFrame(testWidth/2, testHeight/2+120) }

func repeat(f Frame, n int) []Frame {
	frames := make([]Frame, n)
	for i := range frames {
		frames[i] = f
	}
	return frames
}

func TestScoreAllCenteredIsClear(t *testing.T) {
	got := Score(Clip{FPS: 10, Frames: repeat(centered(), 100)})
	if got.Status != models.AuthenticityClear {
		t.Errorf("status = %q, want %q", got.Status, models.AuthenticityClear)
	}
	if got.RiskScore != 0 {
		t.Errorf("risk = %d, want 0", got.RiskScore)
	}
	if got.Detail.GazeAtCameraPercent != 100 {
		t.Errorf("at-camera percent = %v, want 100", got.Detail.GazeAtCameraPercent)
	}
	if got.Detail.Confidence != 90 {
		t.Errorf("confidence = %d, want 90", got.Detail.Confidence)
	}
}

func TestScoreEvenLeftRightSplitIsSuspicious(t *testing.T) {
	// 80% off-camera split evenly between left and right, no direct
	// left-right reversals. Only the off-camera tier may fire.
	var frames []Frame
	frames = append(frames, repeat(left(), 40)...)
	frames = append(frames, repeat(centered(), 20)...)
	frames = append(frames, repeat(right(), 40)...)

	got := Score(Clip{FPS: 10, Frames: frames})
	if got.RiskScore != 40 {
		t.Fatalf("risk = %d, want exactly 40", got.RiskScore)
	}
	if got.Status != models.AuthenticitySuspicious {
		t.Errorf("status = %q, want %q", got.Status, models.AuthenticitySuspicious)
	}
	if got.Detail.HorizontalScanCount != 0 {
		t.Errorf("scan count = %d, want 0", got.Detail.HorizontalScanCount)
	}
	if got.Detail.PrimaryOffCameraDirection != "" {
		t.Errorf("dominant direction = %q, want none for an even split", got.Detail.PrimaryOffCameraDirection)
	}
}

func TestScoreConsistentDirectionIsHighRisk(t *testing.T) {
	var frames []Frame
	frames = append(frames, repeat(centered(), 25)...)
	frames = append(frames, repeat(right(), 75)...)

	got := Score(Clip{FPS: 10, Frames: frames})
	// 75% off-camera (+40) plus a dominant right gaze above 40% (+30).
	if got.RiskScore != 70 {
		t.Fatalf("risk = %d, want 70", got.RiskScore)
	}
	if got.Status != models.AuthenticityHighRisk {
		t.Errorf("status = %q, want %q", got.Status, models.AuthenticityHighRisk)
	}
	if got.Detail.PrimaryOffCameraDirection != "right" {
		t.Errorf("dominant direction = %q, want right", got.Detail.PrimaryOffCameraDirection)
	}
}

func TestScoreCountsLeftRightReversals(t *testing.T) {
	frames := make([]Frame, 20)
	for i := range frames {
		if i%2 == 0 {
			frames[i] = left()
		} else {
			frames[i] = right()
		}
	}

	got := Score(Clip{FPS: 2, Frames: frames})
	if got.Detail.HorizontalScanCount != 19 {
		t.Errorf("scan count = %d, want 19", got.Detail.HorizontalScanCount)
	}
	// 20 frames at 2 FPS is 10 seconds: 19 reversals scale to 114/min.
	if got.Detail.HorizontalScansPerMinute != 114 {
		t.Errorf("scans per minute = %v, want 114", got.Detail.HorizontalScansPerMinute)
	}
}

func TestScoreDownwardGazeTiers(t *testing.T) {
	cases := []struct {
		name     string
		downN    int
		wantRisk int
	}{
		{"below both tiers", 20, 0},
		{"lower tier", 25, 5},
		// 35% down crosses the 30% down-gaze tier (+10), the 30%
		// off-camera tier (+15), and the 25% dominant-direction tier (+20).
		{"upper tier", 35, 45},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var frames []Frame
			frames = append(frames, repeat(down(), tc.downN)...)
			frames = append(frames, repeat(centered(), 100-tc.downN)...)

			got := Score(Clip{FPS: 10, Frames: frames})
			if got.RiskScore != tc.wantRisk {
				t.Errorf("risk = %d, want %d", got.RiskScore, tc.wantRisk)
			}
		})
	}
}

func TestScoreNoFaceIsErrorStatus(t *testing.T) {
	frames := repeat(Frame{Width: testWidth, Height: testHeight}, 50)
	got := Score(Clip{FPS: 10, Frames: frames})
	if got.Status != StatusError {
		t.Errorf("status = %q, want %q", got.Status, StatusError)
	}
	if got.RiskScore != 0 {
		t.Errorf("risk = %d, want 0", got.RiskScore)
	}
	if len(got.Detail.Flags) == 0 || !strings.Contains(got.Detail.Flags[0], "no face") {
		t.Errorf("flags = %v, want a no-face explanation", got.Detail.Flags)
	}
}

func TestScoreConfidenceTracksDetectionRate(t *testing.T) {
	var frames []Frame
	frames = append(frames, repeat(centered(), 50)...)
	frames = append(frames, repeat(Frame{Width: testWidth, Height: testHeight}, 50)...)

	got := Score(Clip{FPS: 10, Frames: frames})
	if got.Detail.Confidence != 60 {
		t.Errorf("confidence = %d, want 60 at a 50%% detection rate", got.Detail.Confidence)
	}
}

type stubSampler struct {
	clip Clip
	err  error
}

func (s *stubSampler) Sample(context.Context, string) (Clip, error) {
	return s.clip, s.err
}

func TestAssessSamplerFailureDoesNotAbort(t *testing.T) {
	scorer := NewScorer(&stubSampler{err: errors.New("codec not supported")}, nil)
	got := scorer.Assess(context.Background(), "video.webm")
	if got.Status != StatusError {
		t.Errorf("status = %q, want %q", got.Status, StatusError)
	}
	if got.RiskScore != 0 {
		t.Errorf("risk = %d, want 0", got.RiskScore)
	}
	if len(got.Detail.Flags) == 0 {
		t.Error("want an explanatory flag")
	}
}

func TestAssessDelegatesToScore(t *testing.T) {
	scorer := NewScorer(&stubSampler{clip: Clip{FPS: 10, Frames: repeat(centered(), 10)}}, nil)
	got := scorer.Assess(context.Background(), "video.webm")
	if got.Status != models.AuthenticityClear {
		t.Errorf("status = %q, want %q", got.Status, models.AuthenticityClear)
	}
}
