package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/pkg/decode"
	"github.com/JaimeStill/rainn/pkg/handlers"
	"github.com/JaimeStill/rainn/pkg/routes"
)

// Runner executes a process against uploaded files.
type Runner interface {
	Run(ctx context.Context, processID, agentID uuid.UUID, files []File) Result
}

// Handler accepts run submissions.
type Handler struct {
	runner        Runner
	logger        *slog.Logger
	maxUploadSize int64
	maxFiles      int
}

// NewHandler creates a Handler with the upload limits for a run request.
func NewHandler(runner Runner, logger *slog.Logger, maxUploadSize int64, maxFiles int) *Handler {
	return &Handler{
		runner:        runner,
		logger:        logger.With("handler", "execution"),
		maxUploadSize: maxUploadSize,
		maxFiles:      maxFiles,
	}
}

// Routes returns the route group for starting runs.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/runs",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Run},
		},
	}
}

// Run executes a process synchronously against the uploaded files.
// Form fields: process_id, optional agent_id, and one or more files.
// A run that fails still responds 200 with a FAILED result.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrUploadTooLarge)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidUpload)
		return
	}
	defer r.MultipartForm.RemoveAll()

	processID, agentID, err := parseIDs(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	headers := uploadedFiles(r.MultipartForm)
	if err := h.checkFiles(headers); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	dir, err := os.MkdirTemp("", "rainn-upload-")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	defer os.RemoveAll(dir)

	files, err := saveUploads(dir, headers)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result := h.runner.Run(context.WithoutCancel(r.Context()), processID, agentID, files)
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) checkFiles(headers []*multipart.FileHeader) error {
	if len(headers) == 0 {
		return ErrNoFiles
	}
	if h.maxFiles > 0 && len(headers) > h.maxFiles {
		return fmt.Errorf("%w: %d uploaded, limit %d", ErrTooManyFiles, len(headers), h.maxFiles)
	}
	for _, fh := range headers {
		if !decode.Supported(fh.Filename) {
			return fmt.Errorf("%w: %s", ErrUnsupportedFileType, fh.Filename)
		}
	}
	return nil
}

func parseIDs(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	raw := strings.TrimSpace(r.FormValue("process_id"))
	if raw == "" {
		return uuid.Nil, uuid.Nil, ErrProcessRequired
	}
	processID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: process_id", ErrInvalidID)
	}

	agentID := uuid.Nil
	if raw := strings.TrimSpace(r.FormValue("agent_id")); raw != "" {
		agentID, err = uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, uuid.Nil, fmt.Errorf("%w: agent_id", ErrInvalidID)
		}
	}

	return processID, agentID, nil
}

func uploadedFiles(form *multipart.Form) []*multipart.FileHeader {
	var headers []*multipart.FileHeader
	headers = append(headers, form.File["files"]...)
	headers = append(headers, form.File["file"]...)
	return headers
}

func saveUploads(dir string, headers []*multipart.FileHeader) ([]File, error) {
	files := make([]File, 0, len(headers))
	for i, fh := range headers {
		name := filepath.Base(filepath.Clean("/" + fh.Filename))
		if name == "/" {
			name = "upload"
		}
		dst := filepath.Join(dir, fmt.Sprintf("%02d_%s", i+1, name))

		if err := saveUpload(fh, dst); err != nil {
			return nil, err
		}
		files = append(files, File{Path: dst, Name: name})
	}
	return files, nil
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUpload, fh.Filename)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("save upload %s: %w", fh.Filename, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("save upload %s: %w", fh.Filename, err)
	}
	return out.Close()
}
