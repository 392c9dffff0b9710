package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// BodyFunc produces a fresh request body and its content type. It is called
// once per attempt so that a request can be replayed after a token refresh.
type BodyFunc func() (io.Reader, string, error)

// Request describes one backend call. Path is relative to the versioned API
// prefix, e.g. "deployment/stats".
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   BodyFunc
	// Anonymous requests carry no bearer token and are never refreshed.
	Anonymous bool
}

func JSONBody(v any) BodyFunc {
	return func() (io.Reader, string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", errors.Wrap(err, "marshal request body")
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

// MultipartFile uploads data as a single form file field.
func MultipartFile(field, filename string, data []byte) BodyFunc {
	return func() (io.Reader, string, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     field,
			"filename": filepath.Base(filename),
		}))
		h.Set("Content-Type", AudioContentType(filename))

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", errors.Wrap(err, "create multipart part")
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", errors.Wrap(err, "write multipart part")
		}
		if err := w.Close(); err != nil {
			return nil, "", errors.Wrap(err, "close multipart writer")
		}
		return &buf, w.FormDataContentType(), nil
	}
}

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".webm": "audio/webm",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
}

// AudioContentType maps the extensions the transcription endpoint accepts to
// the content types it checks for.
func AudioContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := audioTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
