package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const multipartMemory = 32 << 20

// parseUpload caps the body at the configured upload size and parses a
// multipart form.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("multipart form: %v: %w", err, errBadRequest)
	}
	return nil
}

// formFile returns the "file" part or nil when none was sent.
func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	f, h, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read upload: %v: %w", err, errBadRequest)
	}
	return f, h, nil
}

// spool copies r into a temp file that keeps the extension of name. The
// caller removes the file.
func (s *Server) spool(r io.Reader, name string) (string, error) {
	dir := s.cfg.Paths.Temp
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 6 {
		ext = ""
	}
	f, err := os.CreateTemp(dir, "vv-upload-*"+ext)
	if err != nil {
		return "", err
	}
	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("spool upload: %w", err)
	}
	return f.Name(), nil
}

func (s *Server) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.WithError(err).WithField("path", path).Debug("temp cleanup failed")
	}
}

// recordingExt picks a file extension the converter recognises for a
// browser recording mime type.
func recordingExt(mimeType string) string {
	mt := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mt, "wav"):
		return ".wav"
	case strings.Contains(mt, "ogg"):
		return ".ogg"
	case strings.Contains(mt, "mp4"), strings.Contains(mt, "m4a"):
		return ".m4a"
	case strings.Contains(mt, "mpeg"), strings.Contains(mt, "mp3"):
		return ".mp3"
	}
	return ".webm"
}
