package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"listing-admin-api/internal/draft"
	"listing-admin-api/internal/logger"
	"listing-admin-api/internal/service"
	"listing-admin-api/pkg/apierror"
	"listing-admin-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// multipartMemory is the part of an upload kept in memory while parsing.
const multipartMemory = 32 << 20

// EditorHandler exposes editor sessions: the create and edit listing forms.
type EditorHandler struct {
	editor         *service.EditorService
	maxUploadBytes int64
	log            logger.Logger
}

// NewEditorHandler creates a new editor handler.
func NewEditorHandler(editor *service.EditorService, maxUploadBytes int64, log logger.Logger) *EditorHandler {
	return &EditorHandler{
		editor:         editor,
		maxUploadBytes: maxUploadBytes,
		log:            log.With("component", "editor_http"),
	}
}

// OpenRequest opens a session. An empty listing id opens the create form.
type OpenRequest struct {
	ListingID string `json:"listing_id"`
}

// ValueRequest carries a single form value.
type ValueRequest struct {
	Value string `json:"value"`
}

// SessionResponse is returned by every session operation.
type SessionResponse struct {
	SessionID string      `json:"session_id"`
	State     draft.State `json:"state"`
}

// Open handles POST /api/v1/editor/sessions
func (h *EditorHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	sid := h.editor.Open(req.ListingID)
	sess, err := h.editor.Get(sid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, SessionResponse{SessionID: sid, State: sess.State()})
}

// Get handles GET /api/v1/editor/sessions/{sid}
func (h *EditorHandler) Get(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	sess, err := h.editor.Get(sid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, SessionResponse{SessionID: sid, State: sess.State()})
}

// Close handles DELETE /api/v1/editor/sessions/{sid}
func (h *EditorHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.Close(chi.URLParam(r, "sid")); err != nil {
		h.writeError(w, err)
		return
	}
	response.NoContent(w)
}

// Target handles PUT /api/v1/editor/sessions/{sid}/target
func (h *EditorHandler) Target(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")

	var req OpenRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	if err := h.editor.Retarget(sid, req.ListingID); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondState(w, sid)
}

// SetField handles PUT /api/v1/editor/sessions/{sid}/fields/{key}
func (h *EditorHandler) SetField(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	field := chi.URLParam(r, "key")

	var req ValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	sess, err := h.editor.Get(sid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := sess.SetField(field, req.Value); err != nil {
		if errors.Is(err, draft.ErrInvalidValue) {
			response.Error(w, apierror.ValidationError("invalid field value",
				apierror.FieldError{Field: field, Message: err.Error()}))
			return
		}
		h.writeError(w, err)
		return
	}
	h.respondState(w, sid)
}

// AddFeature handles POST /api/v1/editor/sessions/{sid}/features
func (h *EditorHandler) AddFeature(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")

	var req ValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	sess, err := h.editor.Get(sid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := sess.AddFeature(req.Value); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondState(w, sid)
}

// RemoveFeature handles DELETE /api/v1/editor/sessions/{sid}/features/{index}?value=
func (h *EditorHandler) RemoveFeature(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		response.Error(w, apierror.BadRequest("index must be a number"))
		return
	}

	sess, err := h.editor.Get(sid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := sess.RemoveFeature(r.URL.Query().Get("value"), index); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondState(w, sid)
}

// AddImages handles POST /api/v1/editor/sessions/{sid}/images with a
// multipart "images" file list.
func (h *EditorHandler) AddImages(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")

	sess, err := h.editor.Get(sid)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, apierror.PayloadTooLarge("upload exceeds the request size limit"))
			return
		}
		response.Error(w, apierror.BadRequest("invalid multipart form"))
		return
	}

	headers := r.MultipartForm.File["images"]
	files := make([]*draft.FileHandle, 0, len(headers))
	for _, fh := range headers {
		files = append(files, bufferUpload(fh))
	}

	if _, err := sess.AddImages(r.Context(), files); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondState(w, sid)
}

// RemoveImage handles DELETE /api/v1/editor/sessions/{sid}/images/{index}
func (h *EditorHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		response.Error(w, apierror.BadRequest("index must be a number"))
		return
	}

	sess, err := h.editor.Get(sid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := sess.RemoveImage(index); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondState(w, sid)
}

// SubmitResponse is returned after a successful submit.
type SubmitResponse struct {
	ListingID string `json:"listing_id"`
	Closed    bool   `json:"closed"`
}

// Submit handles POST /api/v1/editor/sessions/{sid}/submit
func (h *EditorHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")

	res, err := h.editor.Submit(r.Context(), sid)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) || errors.Is(err, draft.ErrSessionClosed) ||
			errors.Is(err, draft.ErrBaselineLoading) || errors.Is(err, draft.ErrSubmitInProgress) {
			h.writeError(w, err)
			return
		}
		h.log.Error("submit failed", "session_id", sid, "error", err)
		response.Error(w, apierror.InternalError(res.Errors[draft.FieldMessage]))
		return
	}
	if !res.Closed {
		response.Error(w, apierror.ValidationError(draft.BannerMessage, apierror.FieldErrors(res.Errors)...))
		return
	}

	response.OK(w, SubmitResponse{ListingID: res.ListingID, Closed: true})
}

func (h *EditorHandler) respondState(w http.ResponseWriter, sid string) {
	sess, err := h.editor.Get(sid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, SessionResponse{SessionID: sid, State: sess.State()})
}

func (h *EditorHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, draft.ErrSessionClosed):
		response.Error(w, apierror.NotFound("Editor session not found"))
	case errors.Is(err, draft.ErrBaselineLoading):
		response.Error(w, apierror.Conflict("Listing is still loading"))
	case errors.Is(err, draft.ErrSubmitInProgress):
		response.Error(w, apierror.Conflict("Listing is being saved"))
	case errors.Is(err, draft.ErrUnknownField):
		response.Error(w, apierror.BadRequest(err.Error()))
	default:
		h.log.Error("editor request failed", "error", err)
		response.Error(w, apierror.InternalError(""))
	}
}

// decodeOptional decodes a JSON body that may be empty.
func decodeOptional(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return false
	}
	return true
}

// bufferUpload turns a multipart file into a handle that outlives the
// request. Files above the size ceiling are never read; ingestion rejects
// them by their declared size.
func bufferUpload(fh *multipart.FileHeader) *draft.FileHandle {
	handle := &draft.FileHandle{Name: fh.Filename, Size: fh.Size}
	if fh.Size > draft.MaxFileSize {
		handle.Open = func() (io.ReadCloser, error) {
			return nil, errors.New("file exceeds the size limit")
		}
		return handle
	}

	data, err := readPart(fh)
	handle.Open = func() (io.ReadCloser, error) {
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return handle
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
