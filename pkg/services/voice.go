package services

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-go-golems/infravoice/pkg/api"
	"github.com/pkg/errors"
)

// SupportedAudioExtensions lists what the transcription endpoint accepts.
var SupportedAudioExtensions = []string{".mp3", ".wav", ".webm", ".m4a"}

type Transcript struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Duration   float64 `json:"duration"`
	Language   string  `json:"language"`
}

type TranscriptionRecord struct {
	ID         string        `json:"id"`
	Transcript string        `json:"transcript"`
	Confidence float64       `json:"confidence"`
	Duration   float64       `json:"duration"`
	CreatedAt  api.Timestamp `json:"created_at"`
}

type TranscriptionHistory struct {
	Items []TranscriptionRecord `json:"items"`
	Total int                   `json:"total"`
	Skip  int                   `json:"skip"`
	Limit int                   `json:"limit"`
}

type VoiceService struct {
	d Doer
}

// IsSupportedAudio reports whether filename has an extension the backend
// will transcribe.
func IsSupportedAudio(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range SupportedAudioExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Transcribe uploads audio as multipart field "file". The reader is consumed
// up front so the upload can be replayed after a token refresh.
func (s *VoiceService) Transcribe(ctx context.Context, filename string, audio io.Reader) (*Transcript, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return nil, errors.Wrap(err, "read audio")
	}
	if len(data) == 0 {
		return nil, errors.New("audio is empty")
	}
	var t Transcript
	err = s.d.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "voice/transcribe",
		Body:   api.MultipartFile("file", filename, data),
	}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *VoiceService) History(ctx context.Context, skip, limit int) (*TranscriptionHistory, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var h TranscriptionHistory
	if err := s.d.Do(ctx, api.Request{Method: http.MethodGet, Path: "voice/history", Query: q}, &h); err != nil {
		return nil, err
	}
	return &h, nil
}
