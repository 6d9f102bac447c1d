// Package files exposes one disk over HTTP.
package files

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/asad/azurefs/internal/core"
	"github.com/asad/azurefs/internal/filesystem"
	"github.com/asad/azurefs/internal/logging"
)

const (
	defaultExpiry = 5 * time.Minute
	maxExpiry     = 7 * 24 * time.Hour
)

// FilesService serves the operations of a single disk.
type FilesService struct {
	disk   *filesystem.Disk
	logger logging.Logger
	now    func() time.Time
}

func NewFilesService(disk *filesystem.Disk, logger logging.Logger) *FilesService {
	return &FilesService{
		disk:   disk,
		logger: logger.With(logging.String("disk", disk.Name())),
		now:    time.Now,
	}
}

// Name returns the service identifier.
func (s *FilesService) Name() string {
	return "files"
}

// RegisterRoutes sets up the gateway routes:
//   - GET|HEAD|PUT|DELETE /object/{path} - read, stat, write, delete
//   - GET /list?prefix=&deep= - list contents
//   - GET /attributes/{path} - mime type, size, timestamps and visibility
//   - POST /copy, POST /move - JSON {source, destination}
//   - GET /url/{path} - public URL
//   - GET /temporary-url/{path}?expires=300&upload=false - signed URL
func (s *FilesService) RegisterRoutes(router chi.Router) {
	router.Get("/object/*", s.handleRead)
	router.Head("/object/*", s.handleStat)
	router.Put("/object/*", s.handleWrite)
	router.Delete("/object/*", s.handleDelete)

	router.Get("/list", s.handleList)
	router.Get("/attributes/*", s.handleAttributes)

	router.Post("/copy", s.handleCopy)
	router.Post("/move", s.handleMove)

	router.Get("/url/*", s.handleURL)
	router.Get("/temporary-url/*", s.handleTemporaryURL)
}

// objectPath extracts the wildcard path, writing a 400 when it is empty.
func (s *FilesService) objectPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	p := chi.URLParam(r, "*")
	if p == "" {
		s.writeError(w, http.StatusBadRequest, "InvalidRequest", "A file path is required")
		return "", false
	}
	return p, true
}

func contentTypeFor(p string) string {
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// mimeTypeOr returns the stored content type, falling back to the
// extension of p.
func mimeTypeOr(attrs filesystem.FileAttributes, p string) string {
	if mimeType, ok := attrs.MimeType(); ok && mimeType != "" {
		return mimeType
	}
	return contentTypeFor(p)
}

// storedContentType looks up the content type the blob was written with so
// GET and HEAD agree. This costs a second fetch of the blob.
func (s *FilesService) storedContentType(ctx context.Context, p string) string {
	attrs, err := s.disk.MimeType(ctx, p)
	if err != nil {
		s.logger.Warn("falling back to extension content type",
			logging.String("path", p),
			logging.ErrorField(err),
		)
		return contentTypeFor(p)
	}
	return mimeTypeOr(attrs, p)
}

// handleRead handles GET /object/{path}.
func (s *FilesService) handleRead(w http.ResponseWriter, r *http.Request) {
	p, ok := s.objectPath(w, r)
	if !ok {
		return
	}

	body, err := s.disk.ReadStream(r.Context(), p)
	if err != nil {
		s.writeFilesystemError(w, "read", err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", s.storedContentType(r.Context(), p))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		s.logger.Error("failed to stream file",
			logging.String("path", p),
			logging.ErrorField(err),
		)
	}
}

// handleStat handles HEAD /object/{path}.
func (s *FilesService) handleStat(w http.ResponseWriter, r *http.Request) {
	p, ok := s.objectPath(w, r)
	if !ok {
		return
	}

	attrs, err := s.disk.FileSize(r.Context(), p)
	if err != nil {
		status, _ := statusFor(err)
		w.WriteHeader(status)
		return
	}

	if size, ok := attrs.FileSize(); ok {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.Header().Set("Content-Type", mimeTypeOr(attrs, p))
	if modified, ok := attrs.LastModified(); ok {
		w.Header().Set("Last-Modified", time.Unix(modified, 0).UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
}

// handleWrite handles PUT /object/{path}.
func (s *FilesService) handleWrite(w http.ResponseWriter, r *http.Request) {
	p, ok := s.objectPath(w, r)
	if !ok {
		return
	}
	defer r.Body.Close()

	var cfg filesystem.Config
	if ct := r.Header.Get("Content-Type"); ct != "" {
		cfg = cfg.With(filesystem.OptionContentType, ct)
	}

	if err := s.disk.WriteStream(r.Context(), p, r.Body, cfg); err != nil {
		s.writeFilesystemError(w, "write", err)
		return
	}

	s.logger.Info("file written", logging.String("path", p))
	w.WriteHeader(http.StatusCreated)
}

// handleDelete handles DELETE /object/{path}.
func (s *FilesService) handleDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := s.objectPath(w, r)
	if !ok {
		return
	}

	if err := s.disk.Delete(r.Context(), p); err != nil {
		s.writeFilesystemError(w, "delete", err)
		return
	}

	s.logger.Info("file deleted", logging.String("path", p))
	w.WriteHeader(http.StatusNoContent)
}

// handleList handles GET /list?prefix=&deep=.
func (s *FilesService) handleList(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	deep := false
	if raw := r.URL.Query().Get("deep"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "InvalidRequest", "deep must be a boolean")
			return
		}
		deep = v
	}

	items, err := s.disk.ListContents(r.Context(), prefix, deep).Collect()
	if err != nil {
		s.writeFilesystemError(w, "list", err)
		return
	}
	if items == nil {
		items = []filesystem.FileAttributes{}
	}

	s.writeJSON(w, http.StatusOK, ListResult{Prefix: prefix, Deep: deep, Items: items})
}

// handleAttributes handles GET /attributes/{path}.
func (s *FilesService) handleAttributes(w http.ResponseWriter, r *http.Request) {
	p, ok := s.objectPath(w, r)
	if !ok {
		return
	}

	attrs, err := s.disk.MimeType(r.Context(), p)
	if err != nil {
		s.writeFilesystemError(w, "attributes", err)
		return
	}
	vis, err := s.disk.Visibility(r.Context(), p)
	if err != nil {
		s.writeFilesystemError(w, "attributes", err)
		return
	}
	visibility, _ := vis.Visibility()

	s.writeJSON(w, http.StatusOK, newAttributesResult(attrs, visibility))
}

func (s *FilesService) decodeTransfer(w http.ResponseWriter, r *http.Request) (TransferRequest, bool) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "InvalidRequest", "Body must be JSON with source and destination")
		return req, false
	}
	if req.Source == "" || req.Destination == "" {
		s.writeError(w, http.StatusBadRequest, "InvalidRequest", "Source and destination are required")
		return req, false
	}
	return req, true
}

// handleCopy handles POST /copy.
func (s *FilesService) handleCopy(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTransfer(w, r)
	if !ok {
		return
	}
	if err := s.disk.Copy(r.Context(), req.Source, req.Destination, filesystem.Config{}); err != nil {
		s.writeFilesystemError(w, "copy", err)
		return
	}

	s.logger.Info("file copied",
		logging.String("source", req.Source),
		logging.String("destination", req.Destination),
	)
	s.writeJSON(w, http.StatusOK, req)
}

// handleMove handles POST /move.
func (s *FilesService) handleMove(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTransfer(w, r)
	if !ok {
		return
	}
	if err := s.disk.Move(r.Context(), req.Source, req.Destination, filesystem.Config{}); err != nil {
		s.writeFilesystemError(w, "move", err)
		return
	}

	s.logger.Info("file moved",
		logging.String("source", req.Source),
		logging.String("destination", req.Destination),
	)
	s.writeJSON(w, http.StatusOK, req)
}

// handleURL handles GET /url/{path}.
func (s *FilesService) handleURL(w http.ResponseWriter, r *http.Request) {
	p, ok := s.objectPath(w, r)
	if !ok {
		return
	}

	u, err := s.disk.URL(p)
	if err != nil {
		s.writeFilesystemError(w, "url", err)
		return
	}
	s.writeJSON(w, http.StatusOK, URLResult{URL: u})
}

// handleTemporaryURL handles GET /temporary-url/{path}.
func (s *FilesService) handleTemporaryURL(w http.ResponseWriter, r *http.Request) {
	p, ok := s.objectPath(w, r)
	if !ok {
		return
	}

	expiry := defaultExpiry
	if raw := r.URL.Query().Get("expires"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 || time.Duration(secs)*time.Second > maxExpiry {
			s.writeError(w, http.StatusBadRequest, "InvalidRequest", "expires must be between 1 and 604800 seconds")
			return
		}
		expiry = time.Duration(secs) * time.Second
	}
	upload := false
	if raw := r.URL.Query().Get("upload"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "InvalidRequest", "upload must be a boolean")
			return
		}
		upload = v
	}

	expiresAt := s.now().Add(expiry).UTC()
	s.logger.Info("signing temporary url",
		logging.String("path", p),
		logging.Bool("upload", upload),
		logging.Int64("expires_at", expiresAt.Unix()),
	)
	if upload {
		signed, err := s.disk.TemporaryUploadURL(r.Context(), p, expiresAt, filesystem.Config{})
		if err != nil {
			s.writeFilesystemError(w, "temporary upload url", err)
			return
		}
		s.writeJSON(w, http.StatusOK, URLResult{URL: signed.URL, Headers: signed.Headers, ExpiresAt: &expiresAt})
		return
	}

	signed, err := s.disk.TemporaryURL(r.Context(), p, expiresAt, filesystem.Config{})
	if err != nil {
		s.writeFilesystemError(w, "temporary url", err)
		return
	}
	s.writeJSON(w, http.StatusOK, URLResult{URL: signed, ExpiresAt: &expiresAt})
}

// statusFor maps an error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	var fsErr *filesystem.Error
	if !errors.As(err, &fsErr) {
		return http.StatusInternalServerError, "InternalError"
	}
	switch fsErr.Kind {
	case filesystem.KindNotSupported:
		return http.StatusNotImplemented, "NotSupported"
	case filesystem.KindInvalidPath:
		return http.StatusBadRequest, "InvalidPath"
	case filesystem.KindRead, filesystem.KindMetadata:
		return http.StatusNotFound, "NotFound"
	case filesystem.KindConfiguration:
		return http.StatusInternalServerError, "InvalidConfiguration"
	default:
		return http.StatusBadGateway, "UnableTo" + kindVerb(fsErr.Kind)
	}
}

func kindVerb(k filesystem.Kind) string {
	switch k {
	case filesystem.KindWrite:
		return "Write"
	case filesystem.KindDelete:
		return "Delete"
	case filesystem.KindCopy:
		return "Copy"
	case filesystem.KindMove:
		return "Move"
	case filesystem.KindListing:
		return "List"
	default:
		return "Complete"
	}
}

func (s *FilesService) writeFilesystemError(w http.ResponseWriter, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("operation failed",
			logging.String("operation", op),
			logging.String("kind", filesystem.KindOf(err).String()),
			logging.ErrorField(err),
		)
	}
	s.writeError(w, status, code, err.Error())
}

func (s *FilesService) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response",
			logging.ErrorField(err),
		)
	}
}

// writeError writes an error response in a consistent format.
func (s *FilesService) writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// Ensure FilesService implements the Service interface.
var _ core.Service = (*FilesService)(nil)
