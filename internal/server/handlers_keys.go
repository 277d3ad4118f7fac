package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"beehive/internal/api"
	"beehive/internal/auth"
	"beehive/internal/models"
	"beehive/internal/store"
)

func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}
	var req api.KeyCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	role, err := models.ParseKeyRole(req.Role)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidRole))
		return
	}

	secret, err := auth.GenerateKey(role)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, internalError(err))
		return
	}

	key := &models.APIKey{
		KeyHash: auth.HashKey(secret),
		Project: project,
		Role:    role,
		Label:   strings.TrimSpace(req.Label),
	}
	if err := s.store.CreateKey(r.Context(), key); err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
		return
	}

	s.log().Info("api key created", "project", key.Project, "role", key.Role, "label", key.Label)
	s.writeJSON(w, http.StatusCreated, api.KeyCreateResponse{Key: secret, Details: *key})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}
	keys, err := s.store.ListKeys(r.Context(), project)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
		return
	}
	s.writeJSON(w, http.StatusOK, keys)
}

func (s *Server) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}
	hash := strings.TrimSpace(r.PathValue("hash"))
	if hash == "" {
		s.writeErrorReq(w, r, http.StatusBadRequest,
			badRequestCode(fmt.Errorf("key hash is required"), ErrCodeMissingRequired))
		return
	}

	if err := s.store.RevokeKey(r.Context(), project, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeErrorReq(w, r, http.StatusNotFound,
				notFoundCode(fmt.Errorf("unknown key"), ErrCodeKeyNotFound))
			return
		}
		s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
		return
	}

	s.log().Info("api key revoked", "project", project)
	w.WriteHeader(http.StatusNoContent)
}
