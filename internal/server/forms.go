package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-propform/pkg/codec/properties"
	"github.com/goliatone/go-propform/pkg/form"
	"github.com/goliatone/go-propform/pkg/orchestrator"
	"github.com/goliatone/go-propform/pkg/render"
	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/session"
)

// sessionRequest carries a schema plus saved values. An omitted schema falls
// back to the server default.
type sessionRequest struct {
	Schema       json.RawMessage     `json:"schema,omitempty"`
	Values       json.RawMessage     `json:"values,omitempty"`
	Properties   string              `json:"properties,omitempty"`
	ConfirmAll   bool                `json:"confirmAll,omitempty"`
	Theme        string              `json:"theme,omitempty"`
	Variant      string              `json:"variant,omitempty"`
	ActiveDomain int                 `json:"activeDomain,omitempty"`
	Errors       map[string][]string `json:"errors,omitempty"`
}

func (s *Server) document(raw json.RawMessage) (*schema.Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		if s.defaultSchema == nil {
			return nil, errors.New("schema is required")
		}
		return s.defaultSchema, nil
	}
	doc, err := schema.NewDocument(schema.SourceFromStore("request"), trimmed)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Server) openSession(ctx context.Context, req sessionRequest) (*session.Session, error) {
	doc, err := s.document(req.Schema)
	if err != nil {
		return nil, err
	}
	values := bytes.TrimSpace(req.Values)
	if bytes.Equal(values, []byte("null")) {
		values = nil
	}
	sess, err := s.orch.Open(ctx, orchestrator.Request{
		Document:   doc,
		Values:     values,
		Properties: []byte(req.Properties),
	})
	if err != nil {
		return nil, err
	}
	if req.ActiveDomain > 0 {
		if _, err := sess.SwitchDomain(req.ActiveDomain); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

func (s *Server) decodeProperties(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	var opts []properties.DecodeOption
	if name := r.URL.Query().Get("name"); name != "" {
		opts = append(opts, properties.WithFileName(name))
	}
	if pattern := r.URL.Query().Get("pattern"); pattern != "" {
		opts = append(opts, properties.WithPattern(pattern))
	}

	cfg, err := properties.Decode(bytes.NewReader(body), opts...)
	if s.metrics != nil {
		s.metrics.CodecOperation("decode", err)
	}
	if err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "DECODE_ERROR", err.Error())
		return
	}
	writeJSON(w, s.logger, http.StatusOK, cfg)
}

func (s *Server) encodeProperties(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	sess, err := s.openSession(r.Context(), req)
	if err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_SESSION", err.Error())
		return
	}
	if req.ConfirmAll {
		if err := confirmAll(sess); err != nil {
			writeError(w, s.logger, http.StatusBadRequest, "CONFIRM_ERROR", err.Error())
			return
		}
	}

	var buf bytes.Buffer
	err = sess.ExportProperties(&buf)
	if s.metrics != nil {
		s.metrics.CodecOperation("encode", err)
	}
	if err != nil {
		var unconfirmed *session.UnconfirmedError
		if errors.As(err, &unconfirmed) {
			mapped := render.UnconfirmedErrors(err)
			writeJSON(w, s.logger, http.StatusConflict, errorBody{
				Error:  err.Error(),
				Code:   "UNCONFIRMED",
				Fields: mapped.Fields,
				Form:   mapped.Form,
			})
			return
		}
		writeError(w, s.logger, http.StatusBadRequest, "ENCODE_ERROR", err.Error())
		return
	}

	s.writeDownload(w, r, "text/plain; charset=utf-8", sess.Configuration().OutputFileName, buf.Bytes())
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	sess, err := s.openSession(r.Context(), req)
	if err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_SESSION", err.Error())
		return
	}

	var mapped render.ErrorMapping
	if len(req.Errors) > 0 {
		f, err := form.Build(sess)
		if err != nil {
			writeError(w, s.logger, http.StatusBadRequest, "INVALID_SESSION", err.Error())
			return
		}
		mapped = render.MapErrorPayload(f, req.Errors)
	}

	view := formView{theme: req.Theme, variant: req.Variant}
	if len(bytes.TrimSpace(req.Schema)) > 0 && !bytes.Equal(bytes.TrimSpace(req.Schema), []byte("null")) {
		view.schema = string(bytes.TrimSpace(req.Schema))
	}
	s.writeForm(w, r, sess, view, mapped, http.StatusOK)
}

// formView carries what a rendered form posts back besides its fields.
type formView struct {
	schema  string
	theme   string
	variant string
}

// writeForm renders sess as an HTML form that posts to the submit endpoint.
// The hidden inputs carry the session state so the next post can rebuild it.
func (s *Server) writeForm(w http.ResponseWriter, r *http.Request, sess *session.Session, view formView, mapped render.ErrorMapping, status int) {
	hidden, err := formHiddenFields(sess, view)
	if err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, "RENDER_ERROR", err.Error())
		return
	}
	options := render.RenderOptions{
		Action:       submitPath,
		HiddenFields: hidden,
		Errors:       mapped.Fields,
		FormErrors:   mapped.Form,
	}

	out, err := s.orch.Render(r.Context(), sess, orchestrator.Request{
		ThemeName:     view.theme,
		ThemeVariant:  view.variant,
		RenderOptions: options,
	})
	if err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "RENDER_ERROR", err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(out); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("write form")
	}
}

// confirmAll accepts every pending field at its current value.
func confirmAll(sess *session.Session) error {
	pending, err := sess.Unconfirmed()
	if err != nil {
		return err
	}
	for _, p := range pending {
		if err := sess.Confirm(p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}
