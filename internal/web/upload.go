package web

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strings"
)

// multipartMemory is how much of a multipart form is kept in memory before
// the standard library spools it to disk.
const multipartMemory = 8 << 20

// withTempUpload copies the uploaded file to a private temp file, calls fn
// with its path and removes the file on every exit path.
//
// The file may be sent as the "file" field of a multipart form or as the raw
// request body (text/csv or application/gzip).
func (s *Server) withTempUpload(w http.ResponseWriter, r *http.Request, fn func(path string) error) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	src, cleanup, err := uploadSource(r)
	if err != nil {
		return err
	}
	defer cleanup()

	tmp, err := os.CreateTemp(s.cfg.Upload.TempDir, "catalog-import-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("remove temp upload", "path", path, "error", err)
		}
	}()

	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("spool upload: %w", err)
	}
	if n == 0 {
		return errNoFile
	}

	return fn(path)
}

func uploadSource(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return r.Body, func() {}, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, fmt.Errorf("parse upload form: %w", err)
	}
	cleanupForm := func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		cleanupForm()
		return nil, nil, errNoFile
	}
	return file, func() {
		file.Close()
		cleanupForm()
	}, nil
}
