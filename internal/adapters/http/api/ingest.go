package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/okian/focusengine/pkg/logger"
)

// uploadField is the multipart field carrying the archive.
const uploadField = "file"

// IngestHandler accepts a zip archive of population CSVs.
type IngestHandler struct {
	deps     Dependencies
	maxBytes int64
	log      logger.Logger
}

// NewIngestHandler creates a new ingestion handler.
func NewIngestHandler(deps Dependencies, maxBytes int64, log logger.Logger) *IngestHandler {
	return &IngestHandler{deps: deps, maxBytes: maxBytes, log: log}
}

// HandleIngest handles POST /internal/ingest. The archive is either the raw
// request body or the "file" part of a multipart form. ?force=true
// reprocesses an archive that was already ingested.
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	force, err := boolParam(r, "force")
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	data, err := h.readArchive(w, r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	res, err := h.deps.Ingest(r.Context(), data, force)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	h.log.Info(r.Context(), "archive ingested",
		logger.String("sourceVersion", res.SourceVersion),
		logger.Bool("skipped", res.Skipped),
		logger.Bool("success", res.Success),
	)
	writeData(w, http.StatusOK, res)
}

func (h *IngestHandler) readArchive(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	var src io.Reader = r.Body
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		f, _, err := r.FormFile(uploadField)
		if err != nil {
			if tooLarge(err) {
				return nil, ErrBodyTooLarge
			}
			return nil, fmt.Errorf("%w: multipart field %q: %v", ErrBadRequest, uploadField, err)
		}
		defer f.Close()
		src = f
	}

	data, err := io.ReadAll(src)
	if err != nil {
		if tooLarge(err) {
			return nil, ErrBodyTooLarge
		}
		return nil, fmt.Errorf("%w: read body: %v", ErrBadRequest, err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyBody
	}
	return data, nil
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// boolParam parses an optional boolean query parameter.
func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrBadRequest, name)
	}
	return v, nil
}
