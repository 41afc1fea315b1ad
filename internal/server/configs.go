package server

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-propform/pkg/configs"
)

func (s *Server) configsError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, configs.ErrCategoryNotFound), errors.Is(err, configs.ErrConfigurationNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, configs.ErrCategoryRequired), errors.Is(err, configs.ErrInvalidRequest):
		status, code = http.StatusBadRequest, "INVALID_REQUEST"
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("save api")
	}
	writeError(w, s.logger, status, code, configs.Message(err))
}

func (s *Server) listConfigurations(w http.ResponseWriter, r *http.Request) {
	out, err := s.configs.ListConfigurations(r.Context(), s.owner(r))
	if err != nil {
		s.configsError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, out)
}

func (s *Server) listWithCategories(w http.ResponseWriter, r *http.Request) {
	out, err := s.configs.ListCategoriesWithConfigurations(r.Context(), s.owner(r))
	if err != nil {
		s.configsError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, out)
}

func (s *Server) getConfiguration(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, s.logger)
	if !ok {
		return
	}
	out, err := s.configs.Get(r.Context(), s.owner(r), id)
	if err != nil {
		s.configsError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, out)
}

func (s *Server) createConfiguration(w http.ResponseWriter, r *http.Request) {
	var req configs.SaveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	out, err := s.configs.Save(r.Context(), s.owner(r), req)
	if err != nil {
		s.configsError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, out)
}

func (s *Server) updateConfiguration(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, s.logger)
	if !ok {
		return
	}
	var req configs.UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	out, err := s.configs.Update(r.Context(), s.owner(r), id, req)
	if err != nil {
		s.configsError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, out)
}

func (s *Server) deleteConfiguration(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, s.logger)
	if !ok {
		return
	}
	if err := s.configs.Delete(r.Context(), s.owner(r), id); err != nil {
		s.configsError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	out, err := s.configs.ListCategories(r.Context(), s.owner(r))
	if err != nil {
		s.configsError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, out)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req configs.CreateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	out, err := s.configs.CreateCategory(r.Context(), s.owner(r), req)
	if err != nil {
		s.configsError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, out)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, s.logger)
	if !ok {
		return
	}
	if err := s.configs.DeleteCategory(r.Context(), s.owner(r), id); err != nil {
		s.configsError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]bool{"deleted": true})
}
