package api

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amirhf/imageSearch/services/search-web/catalog"
	"github.com/amirhf/imageSearch/services/search-web/errs"
	"github.com/amirhf/imageSearch/services/search-web/form"
	"github.com/amirhf/imageSearch/services/search-web/picker"
	"github.com/amirhf/imageSearch/services/search-web/schema"
	"github.com/amirhf/imageSearch/services/search-web/session"
	"github.com/amirhf/imageSearch/services/search-web/storage"
	"github.com/amirhf/imageSearch/services/search-web/view"
)

const sessionCookie = "search_session"

// Pinger reports whether the search backend answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Sessions     *session.Registry
	Catalog      catalog.Catalog
	History      storage.HistoryStore
	Backend      Pinger
	Logger       *slog.Logger
	PageSize     int
	HistoryLimit int
}

type Handler struct {
	sessions     *session.Registry
	catalog      catalog.Catalog
	history      storage.HistoryStore
	backend      Pinger
	logger       *slog.Logger
	pageSize     int
	historyLimit int
	page         *template.Template
	now          func() time.Time
}

func NewHandler(opts Options) (*Handler, error) {
	page, err := parsePage()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := opts.Catalog
	if c.Len() == 0 {
		c = catalog.Default
	}
	return &Handler{
		sessions:     opts.Sessions,
		catalog:      c,
		history:      opts.History,
		backend:      opts.Backend,
		logger:       logger,
		pageSize:     opts.PageSize,
		historyLimit: opts.HistoryLimit,
		page:         page,
		now:          time.Now,
	}, nil
}

// formFor resolves the caller's session, starting one when needed.
func (h *Handler) formFor(w http.ResponseWriter, r *http.Request) *form.Form {
	var current string
	if c, err := r.Cookie(sessionCookie); err == nil {
		current = c.Value
	}
	id, f, created := h.sessions.GetOrCreate(current)
	if created {
		http.SetCookie(w, sessionCookieFor(id))
	}
	return f
}

func sessionCookieFor(id string) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

type stateResponse struct {
	Form      form.Snapshot `json:"form"`
	CanSubmit bool          `json:"can_submit"`
	Result    *view.Result  `json:"result,omitempty"`
}

func (h *Handler) stateOf(f *form.Form) stateResponse {
	snap := f.Snapshot()
	resp := stateResponse{Form: snap, CanSubmit: snap.CanSubmit()}
	if snap.State.Status == form.StatusSucceeded {
		res := view.Project(snap.State.Result, h.now())
		resp.Result = &res
	}
	return resp
}

// respond answers a form action: JSON clients get the new state (or the
// error), browsers are sent back to the page.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, f *form.Form, err error) {
	if !wantsJSON(r) {
		target := "/"
		if page, err := strconv.Atoi(r.FormValue("page")); err == nil && page > 0 {
			target = "/?page=" + strconv.Itoa(page)
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	if err != nil {
		status, body := errorBody(err)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, h.stateOf(f))
}

func errorBody(err error) (int, map[string]any) {
	var verrs schema.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": verrs}
	case errors.Is(err, picker.ErrNoSelection), errors.Is(err, picker.ErrNotOpen):
		return http.StatusConflict, map[string]any{"error": err.Error()}
	case errors.Is(err, picker.ErrUnknownImage):
		return http.StatusUnprocessableEntity, map[string]any{"error": err.Error()}
	}
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return http.StatusUnprocessableEntity, map[string]any{"error": errs.Message(err)}
	case errs.KindConflict:
		return http.StatusConflict, map[string]any{"error": errs.Message(err)}
	}
	return http.StatusInternalServerError, map[string]any{"error": "internal error"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	f := h.formFor(w, r)
	gridPage, _ := strconv.Atoi(r.URL.Query().Get("page"))
	p := view.Build(f.Snapshot(), h.catalog, gridPage, h.pageSize, h.now())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.page.Execute(w, p); err != nil {
		h.logger.Error("render page", "error", err)
	}
}

// fieldUpdates collects the enumerated fields present in the request.
func fieldUpdates(r *http.Request) map[schema.Field]string {
	updates := map[schema.Field]string{}
	for _, field := range []schema.Field{schema.FieldModel, schema.FieldDistance, schema.FieldTopN} {
		if _, ok := r.Form[string(field)]; ok {
			updates[field] = r.Form.Get(string(field))
		}
	}
	return updates
}

func applyFields(f *form.Form, r *http.Request) error {
	for field, value := range fieldUpdates(r) {
		if err := f.SetField(field, value); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) SetFields(w http.ResponseWriter, r *http.Request) {
	f := h.formFor(w, r)
	if err := r.ParseForm(); err != nil {
		h.respond(w, r, f, errs.Wrap(errs.KindValidation, "api.SetFields", "unreadable form", err))
		return
	}
	if _, ok := r.Form[string(schema.FieldImage)]; ok {
		h.respond(w, r, f, form.ErrImageReadOnly)
		return
	}
	h.respond(w, r, f, applyFields(f, r))
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	f := h.formFor(w, r)
	if err := r.ParseForm(); err != nil {
		h.respond(w, r, f, errs.Wrap(errs.KindValidation, "api.Submit", "unreadable form", err))
		return
	}
	err := f.SubmitWith(r.Context(), fieldUpdates(r))
	if err == nil && wantsJSON(r) {
		writeJSON(w, http.StatusAccepted, h.stateOf(f))
		return
	}
	h.respond(w, r, f, err)
}

// OpenPicker keeps any field values posted along with it, so choices made
// in the page survive the dialog round trip.
func (h *Handler) OpenPicker(w http.ResponseWriter, r *http.Request) {
	f := h.formFor(w, r)
	if err := r.ParseForm(); err != nil {
		h.respond(w, r, f, errs.Wrap(errs.KindValidation, "api.OpenPicker", "unreadable form", err))
		return
	}
	if err := applyFields(f, r); err != nil {
		h.respond(w, r, f, err)
		return
	}
	f.OpenPicker()
	h.respond(w, r, f, nil)
}

func (h *Handler) SelectImage(w http.ResponseWriter, r *http.Request) {
	f := h.formFor(w, r)
	n, err := strconv.Atoi(r.FormValue("image"))
	if err != nil {
		h.respond(w, r, f, picker.ErrUnknownImage)
		return
	}
	h.respond(w, r, f, f.SelectImage(catalog.ImageID(n)))
}

func (h *Handler) ConfirmPicker(w http.ResponseWriter, r *http.Request) {
	f := h.formFor(w, r)
	_, err := f.ConfirmPicker()
	h.respond(w, r, f, err)
}

func (h *Handler) CancelPicker(w http.ResponseWriter, r *http.Request) {
	f := h.formFor(w, r)
	f.CancelPicker()
	h.respond(w, r, f, nil)
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stateOf(h.formFor(w, r)))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || (h.historyLimit > 0 && limit > h.historyLimit) {
		limit = h.historyLimit
	}
	outcomes, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list search history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("deep") == "" || h.backend == nil {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	body := map[string]any{
		"status":   "healthy",
		"backend":  "up",
		"sessions": h.sessions.Len(),
		"pending":  h.sessions.Pending(),
		"time":     h.now().UTC(),
	}
	status := http.StatusOK
	if err := h.backend.Ping(ctx); err != nil {
		body["status"] = "degraded"
		body["backend"] = errs.Message(err)
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}
