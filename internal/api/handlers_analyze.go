package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docrank/internal/parser"
	"github.com/dgallion1/docrank/internal/pipeline"
)

// maxAnalyzeFiles bounds the documents accepted in one analysis request.
const maxAnalyzeFiles = 50

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*maxAnalyzeFiles+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	persona := strings.TrimSpace(r.FormValue("persona"))
	job := strings.TrimSpace(r.FormValue("job_to_be_done"))
	if persona == "" || job == "" {
		jsonError(w, "persona and job_to_be_done are required", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	if len(files) > maxAnalyzeFiles {
		jsonError(w, fmt.Sprintf("too many files (max %d)", maxAnalyzeFiles), http.StatusBadRequest)
		return
	}

	dir, err := os.MkdirTemp("", "docrank-job-*")
	if err != nil {
		s.log.Error("create job directory failed", "error", err)
		jsonError(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	names := make([]string, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(filename) {
			os.RemoveAll(dir)
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
			return
		}
		if seen[filename] {
			os.RemoveAll(dir)
			jsonError(w, fmt.Sprintf("duplicate file name: %s", filename), http.StatusBadRequest)
			return
		}
		seen[filename] = true

		hash, code, err := s.saveUpload(fh, filepath.Join(dir, filename))
		if err != nil {
			os.RemoveAll(dir)
			jsonError(w, fmt.Sprintf("%s: %s", filename, err), code)
			return
		}
		s.log.Debug("file received", "filename", filename, "size", fh.Size, "content_hash", hash)
		names = append(names, filename)
	}

	j := pipeline.NewJob(pipeline.Request{Persona: persona, Job: job, Documents: names}, dir)
	if err := s.orchestrator.Submit(j); err != nil {
		os.RemoveAll(dir)
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   j.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/analyze/%s", j.ID),
	})
}

// saveUpload copies one uploaded file to path and returns its content hash.
// On failure it also returns the HTTP status to report.
func (s *Server) saveUpload(fh *multipart.FileHeader, path string) (string, int, error) {
	f, err := fh.Open()
	if err != nil {
		return "", http.StatusBadRequest, fmt.Errorf("failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return "", http.StatusInternalServerError, fmt.Errorf("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return "", http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", http.StatusInternalServerError, fmt.Errorf("failed to store file")
	}
	return pipeline.ContentHashHex(data), 0, nil
}

func (s *Server) handleAnalyzeStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
