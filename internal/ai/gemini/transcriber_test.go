package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubMediaTranscriber struct {
	byPath map[string]string
	errs   map[string]error
	calls  []string
}

func (s *stubMediaTranscriber) TranscribeFile(_ context.Context, path, _ string) (string, error) {
	s.calls = append(s.calls, path)
	if err, ok := s.errs[path]; ok {
		return "", err
	}
	return s.byPath[path], nil
}

type stubExtractor struct {
	audioPath string
	err       error
	cleaned   bool
}

func (s *stubExtractor) ExtractAudio(context.Context, string) (string, func(), error) {
	if s.err != nil {
		return "", nil, s.err
	}
	return s.audioPath, func() { s.cleaned = true }, nil
}

func TestTranscribeDirectVideo(t *testing.T) {
	client := &stubMediaTranscriber{byPath: map[string]string{"video.webm": "hello there"}}
	tr := NewTranscriber(client, &stubExtractor{}, nil)

	text, err := tr.Transcribe(context.Background(), "video.webm")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello there" {
		t.Errorf("transcript = %q", text)
	}
	if len(client.calls) != 1 {
		t.Errorf("provider calls = %d, want 1", len(client.calls))
	}
}

func TestTranscribeFallsBackToAudio(t *testing.T) {
	client := &stubMediaTranscriber{
		byPath: map[string]string{"audio.mp3": "recovered speech"},
		errs:   map[string]error{"video.webm": errors.New("unsupported container")},
	}
	extractor := &stubExtractor{audioPath: "audio.mp3"}
	tr := NewTranscriber(client, extractor, nil)

	text, err := tr.Transcribe(context.Background(), "video.webm")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "recovered speech" {
		t.Errorf("transcript = %q", text)
	}
	if len(client.calls) != 2 || client.calls[1] != "audio.mp3" {
		t.Errorf("provider calls = %v", client.calls)
	}
	if !extractor.cleaned {
		t.Error("extracted audio file not cleaned up")
	}
}

func TestTranscribeReportsBothFailures(t *testing.T) {
	client := &stubMediaTranscriber{errs: map[string]error{
		"video.webm": errors.New("unsupported container"),
		"audio.mp3":  errors.New("audio too long"),
	}}
	tr := NewTranscriber(client, &stubExtractor{audioPath: "audio.mp3"}, nil)

	_, err := tr.Transcribe(context.Background(), "video.webm")
	if err == nil {
		t.Fatal("Transcribe succeeded, want error")
	}
	if !strings.Contains(err.Error(), "unsupported container") || !strings.Contains(err.Error(), "audio too long") {
		t.Errorf("error = %v, want both causes", err)
	}
}

func TestTranscribeExtractionFailure(t *testing.T) {
	client := &stubMediaTranscriber{errs: map[string]error{"video.webm": errors.New("unsupported container")}}
	tr := NewTranscriber(client, &stubExtractor{err: errors.New("ffmpeg not found")}, nil)

	_, err := tr.Transcribe(context.Background(), "video.webm")
	if err == nil {
		t.Fatal("Transcribe succeeded, want error")
	}
	if !strings.Contains(err.Error(), "ffmpeg not found") {
		t.Errorf("error = %v, want extraction cause", err)
	}
}

func TestTranscribeEmptyTranscriptIsValid(t *testing.T) {
	client := &stubMediaTranscriber{byPath: map[string]string{"silent.webm": ""}}
	tr := NewTranscriber(client, &stubExtractor{}, nil)

	text, err := tr.Transcribe(context.Background(), "silent.webm")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "" {
		t.Errorf("transcript = %q, want empty", text)
	}
}
