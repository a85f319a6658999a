package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/textmosaic/pkg/errors"
	"github.com/matzehuels/textmosaic/pkg/fonts"
	"github.com/matzehuels/textmosaic/pkg/observability"
	"github.com/matzehuels/textmosaic/pkg/pipeline"
	"github.com/matzehuels/textmosaic/pkg/raster"
	"github.com/matzehuels/textmosaic/pkg/store"
)

// CreateRequest is the body of POST /v1/mosaics. Image holds the encoded
// picture in standard base64. An empty Texts list builds an ASCII-art mosaic
// from filler characters only.
type CreateRequest struct {
	Image   string           `json:"image"`
	Name    string           `json:"name"`
	Texts   []string         `json:"texts"`
	Options pipeline.Options `json:"options"`
}

// MosaicResponse describes a stored mosaic.
type MosaicResponse struct {
	store.Record
	Artifacts []string `json:"artifacts,omitempty"`
}

// ListResponse is the body of GET /v1/mosaics.
type ListResponse struct {
	Mosaics []store.Record `json:"mosaics"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var req CreateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body"))
		return
	}

	in, err := s.decodeInput(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := req.Options
	if err := s.checkFont(opts.Font); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.apply != nil {
		s.apply(&opts)
	}
	opts.FontDir = s.fontDir
	opts.Logger = s.logger.With("request_id", middleware.GetReqID(r.Context()))
	if err := opts.ValidateAndSetDefaults(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if b := in.Image.Bounds(); opts.Width == 0 && opts.ValidateSize(b.Dx(), b.Dy()) != nil {
		opts.Width = opts.FitWidth(b)
	}

	res, err := s.runner.Execute(r.Context(), opts, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rec := store.NewRecord(res, in.Name, opts)
	if err := s.store.Save(r.Context(), rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/mosaics/"+rec.ID)
	writeJSON(w, http.StatusCreated, newMosaicResponse(rec))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLen
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxListLen {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "limit must be between 1 and %d", MaxListLen))
			return
		}
		limit = n
	}

	recs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Mosaics: recs})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newMosaicResponse(rec))
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name := chi.URLParam(r, "artifact")
	data, ok := rec.Artifacts[name]
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "mosaic %s has no artifact %q", rec.ID, name))
		return
	}
	w.Header().Set("Content-Type", contentType(name))
	w.Header().Set("Content-Disposition", `inline; filename="`+rec.ID+"."+pipeline.Extension(name)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// decodeInput turns a request body into pipeline input.
func (s *Server) decodeInput(req CreateRequest) (pipeline.Input, error) {
	if req.Image == "" {
		return pipeline.Input{}, errors.New(errors.ErrCodeInvalidInput, "image is required")
	}
	if len(req.Texts) > MaxTexts {
		return pipeline.Input{}, errors.New(errors.ErrCodeInvalidInput, "too many texts (max %d)", MaxTexts)
	}
	for i, text := range req.Texts {
		if err := errors.ValidateText(text, MaxTextBytes); err != nil {
			return pipeline.Input{}, errors.New(errors.GetCode(err), "text %d: %s", i, errors.UserMessage(err))
		}
	}

	raw, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return pipeline.Input{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "image is not valid base64")
	}
	img, err := raster.Decode(bytes.NewReader(raw))
	if err != nil {
		return pipeline.Input{}, err
	}

	var name string
	if req.Name != "" {
		if err := errors.ValidatePath(req.Name); err != nil {
			return pipeline.Input{}, err
		}
		name = path.Base(req.Name)
	}
	return pipeline.Input{Image: img, Name: name, Texts: req.Texts}, nil
}

// checkFont allows builtin fonts, and plain file names when a font directory
// is configured.
func (s *Server) checkFont(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := fonts.Builtin(name); ok {
		return nil
	}
	if s.fontDir == "" {
		return errors.New(errors.ErrCodeInvalidFont, "unknown font %q (available: %s)", name, strings.Join(fonts.Names(), ", "))
	}
	return errors.ValidateFontName(name)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	code := errors.GetCode(err)
	msg := errors.UserMessage(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	if status >= http.StatusInternalServerError {
		observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Code: code, Message: msg})
}

func newMosaicResponse(rec store.Record) MosaicResponse {
	names := make([]string, 0, len(rec.Artifacts))
	for name := range rec.Artifacts {
		names = append(names, name)
	}
	slices.Sort(names)
	return MosaicResponse{Record: rec, Artifacts: names}
}

func contentType(artifact string) string {
	switch pipeline.Extension(artifact) {
	case "png":
		return "image/png"
	case "json":
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
