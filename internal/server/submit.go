package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-propform/pkg/render"
	"github.com/goliatone/go-propform/pkg/session"
)

const submitPath = "/api/forms/submit"

// Reserved inputs of a rendered form. Everything else is a property key.
const (
	fieldState   = "_state"
	fieldSchema  = "_schema"
	fieldTheme   = "_theme"
	fieldVariant = "_variant"
	fieldDomain  = "_domain"
	fieldAction  = "_action"
	fieldConfirm = "_confirm"
)

// formState is the session snapshot a rendered form carries between posts.
type formState struct {
	Values    json.RawMessage   `json:"values"`
	Confirmed map[string]string `json:"confirmed,omitempty"`
	Active    int               `json:"active,omitempty"`
}

func formHiddenFields(sess *session.Session, view formView) (map[string]string, error) {
	values, err := sess.ExportValues()
	if err != nil {
		return nil, err
	}
	state, err := json.Marshal(formState{
		Values:    values,
		Confirmed: sess.Confirmations(),
		Active:    sess.ActiveDomain(),
	})
	if err != nil {
		return nil, err
	}

	fields := []render.HiddenField{render.Hidden(fieldState, string(state))}
	if version := sess.Configuration().Version; version != "" {
		fields = append(fields, render.VersionField(version))
	}
	if view.schema != "" {
		fields = append(fields, render.Hidden(fieldSchema, view.schema))
	}
	if view.theme != "" {
		fields = append(fields, render.Hidden(fieldTheme, view.theme))
	}
	if view.variant != "" {
		fields = append(fields, render.Hidden(fieldVariant, view.variant))
	}
	return render.MergeHiddenFields(nil, fields...), nil
}

// submitForm handles the urlencoded post of a rendered form: it rebuilds the
// session from _state, applies the posted fields and confirmations, then runs
// the pressed button. Tabs and domain buttons re-render; save downloads the
// JSON document and export downloads the flat text.
func (s *Server) submitForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	posted := r.PostForm

	var state formState
	if raw := strings.TrimSpace(posted.Get(fieldState)); raw != "" {
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			writeError(w, s.logger, http.StatusBadRequest, "INVALID_STATE", "invalid form state: "+err.Error())
			return
		}
	}

	view := formView{
		schema:  strings.TrimSpace(posted.Get(fieldSchema)),
		theme:   posted.Get(fieldTheme),
		variant: posted.Get(fieldVariant),
	}
	sess, err := s.openSession(r.Context(), sessionRequest{
		Schema:       json.RawMessage(view.schema),
		Values:       state.Values,
		ActiveDomain: state.Active,
	})
	if err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_SESSION", err.Error())
		return
	}
	for key, value := range state.Confirmed {
		// Stale entries simply stay unconfirmed.
		_ = sess.Confirm(key, value)
	}

	if err := applyPostedFields(sess, posted); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_FIELD", err.Error())
		return
	}

	var mapped render.ErrorMapping
	if raw := posted.Get(fieldDomain); raw != "" {
		id, err := strconv.Atoi(raw)
		if err == nil {
			_, err = sess.SwitchDomain(id)
		}
		if err != nil {
			writeError(w, s.logger, http.StatusBadRequest, "INVALID_DOMAIN", "invalid domain: "+raw)
			return
		}
	}

	status := http.StatusOK
	switch action := posted.Get(fieldAction); action {
	case "":
	case "add-domain":
		if _, err := sess.AddDomain(); err != nil {
			mapped.Form = render.MergeFormErrors(mapped.Form, err.Error())
		}
	case "remove-domain":
		if _, err := sess.RemoveDomain(); err != nil {
			mapped.Form = render.MergeFormErrors(mapped.Form, err.Error())
		}
	case "save":
		data, err := sess.ExportJSON()
		if err != nil {
			writeError(w, s.logger, http.StatusBadRequest, "ENCODE_ERROR", err.Error())
			return
		}
		s.writeDownload(w, r, "application/json", jsonFileName(sess), data)
		return
	case "export":
		var buf bytes.Buffer
		err := sess.ExportProperties(&buf)
		if s.metrics != nil {
			s.metrics.CodecOperation("encode", err)
		}
		if err == nil {
			s.writeDownload(w, r, "text/plain; charset=utf-8", sess.Configuration().OutputFileName, buf.Bytes())
			return
		}
		var unconfirmed *session.UnconfirmedError
		if !errors.As(err, &unconfirmed) {
			writeError(w, s.logger, http.StatusBadRequest, "ENCODE_ERROR", err.Error())
			return
		}
		mapped = render.UnconfirmedErrors(err)
		status = http.StatusConflict
	default:
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_ACTION", "unknown action: "+action)
		return
	}

	s.writeForm(w, r, sess, view, mapped, status)
}

// applyPostedFields sets every posted property, then records the confirm
// boxes. A field that needs confirmation and was posted without its box
// checked loses its confirmation. Keys the schema does not know are skipped.
func applyPostedFields(sess *session.Session, posted map[string][]string) error {
	keys := make([]string, 0, len(posted))
	for key := range posted {
		if strings.HasPrefix(key, "_") {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	applied := make([]string, 0, len(keys))
	for _, key := range keys {
		values := posted[key]
		if len(values) == 0 {
			continue
		}
		// A checkbox posts after its hidden off value.
		if _, err := sess.Set(key, values[len(values)-1]); err != nil {
			if errors.Is(err, session.ErrUnknownProperty) || errors.Is(err, session.ErrUnknownDomain) {
				continue
			}
			return fmt.Errorf("%s: %w", key, err)
		}
		applied = append(applied, key)
	}

	confirmed := make(map[string]bool, len(posted[fieldConfirm]))
	for _, key := range posted[fieldConfirm] {
		confirmed[key] = true
	}
	for _, key := range applied {
		needs, err := sess.NeedsConfirmation(key)
		if err != nil || !needs {
			continue
		}
		if !confirmed[key] {
			_ = sess.Revoke(key)
			continue
		}
		value, err := sess.Get(key)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := sess.Confirm(key, value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func (s *Server) writeDownload(w http.ResponseWriter, r *http.Request, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	if name != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("write download")
	}
}

func jsonFileName(sess *session.Session) string {
	cfg := sess.Configuration()
	if name := cfg.OutputFileName; name != "" {
		return strings.TrimSuffix(name, path.Ext(name)) + ".json"
	}
	if name := strings.TrimSpace(cfg.ProjectName); name != "" {
		return strings.ReplaceAll(strings.ToLower(name), " ", "-") + ".json"
	}
	return "configuration.json"
}
