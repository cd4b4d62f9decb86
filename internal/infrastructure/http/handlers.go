package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
	"github.com/0xcro3dile/versecraft/internal/domain/usecases"
)

func (s *Server) locale(r *http.Request) entities.Locale {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return entities.ParseLocale(lang)
	}
	return s.opts.Locale
}

// handleIndex renders the empty form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, newPageData(s.locale(r), "", "", ""))
}

// handleFormSubmit runs the pipeline for a form post and renders the outcome
// into the same page. The key field is never echoed back.
func (s *Server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	loc := s.locale(r)
	if err := r.ParseForm(); err != nil {
		data := newPageData(loc, "", "", "")
		data.Error = entities.UserMessage(fmt.Errorf("%w: %w", entities.ErrInvalidInput, err))
		s.render(w, http.StatusBadRequest, data)
		return
	}

	req := entities.NewPoemRequest(
		r.PostFormValue("theme"),
		r.PostFormValue("length"),
		r.PostFormValue("style"),
		entities.NewCredential(r.PostFormValue("api_key")),
	)
	run := s.pipeline.Submit(r.Context(), req)

	data := newPageData(loc, req.Theme, req.Length, req.Style)
	data.applyRun(run)
	s.render(w, statusFor(run.Err), data)
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.Error("rendering page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type createPoemRequest struct {
	Theme  string `json:"theme"`
	Length string `json:"length"`
	Style  string `json:"style"`
}

type neighborJSON struct {
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}

type runJSON struct {
	RunID     string         `json:"run_id"`
	State     string         `json:"state"`
	Poem      string         `json:"poem"`
	Trace     []string       `json:"trace"`
	Neighbors []neighborJSON `json:"neighbors,omitempty"`
}

// handleCreatePoem is the JSON form of handleFormSubmit. The credential comes
// from Authorization: Bearer or X-API-Key, never from the body.
func (s *Server) handleCreatePoem(w http.ResponseWriter, r *http.Request) {
	var body createPoemRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, entities.ErrorCode(entities.ErrInvalidInput), "invalid JSON body: "+err.Error())
		return
	}

	req := entities.NewPoemRequest(body.Theme, body.Length, body.Style, credentialFrom(r))
	run := s.pipeline.Submit(r.Context(), req)
	if run.Err != nil {
		writeRunError(w, run)
		return
	}

	out := runJSON{RunID: run.ID, State: string(run.State), Poem: run.Poem.Text}
	for _, st := range run.Trace {
		out.Trace = append(out.Trace, string(st))
	}
	for _, n := range run.Neighbors {
		out.Neighbors = append(out.Neighbors, neighborJSON{Text: n.Text, Distance: n.Distance})
	}
	writeSuccess(w, http.StatusOK, out)
}

func credentialFrom(r *http.Request) entities.Credential {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return entities.NewCredential(token)
		}
	}
	return entities.NewCredential(r.Header.Get("X-API-Key"))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"retrieval": s.pipeline.RetrievalEnabled(),
	})
}

type optionJSON struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	loc := s.locale(r)
	lengths := make([]optionJSON, 0, len(entities.Lengths))
	for _, l := range entities.Lengths {
		lengths = append(lengths, optionJSON{Value: string(l), Label: l.Label(loc)})
	}
	styles := make([]optionJSON, 0, len(entities.Styles))
	for _, st := range entities.Styles {
		styles = append(styles, optionJSON{Value: string(st), Label: st.Label(loc)})
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"locale":  string(loc),
		"lengths": lengths,
		"styles":  styles,
	})
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, entities.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrEmbeddingService),
		errors.Is(err, entities.ErrGenerationService),
		errors.Is(err, entities.ErrDimensionMismatch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func meta(runID string) map[string]any {
	m := map[string]any{"timestamp": time.Now().UTC().Format(time.RFC3339)}
	if runID != "" {
		m["run_id"] = runID
	}
	return m
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"data": data, "meta": meta("")})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": code, "message": message},
		"meta":  meta(""),
	})
}

func writeRunError(w http.ResponseWriter, run *usecases.Run) {
	writeJSON(w, statusFor(run.Err), map[string]any{
		"error": map[string]any{
			"code":    entities.ErrorCode(run.Err),
			"message": run.Message(),
			"state":   string(run.State),
		},
		"meta": meta(run.ID),
	})
}
