package server

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"beehive/internal/api"
	"beehive/internal/auth"
	"beehive/internal/models"
	"beehive/internal/store"
)

var projectNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// handleCreateProject bootstraps a project and mints its one-time admin
// key. The route is unauthenticated; it is the only way to obtain the
// first key of a project.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req api.ProjectCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.Name))
	if !projectNamePattern.MatchString(name) {
		s.writeErrorReq(w, r, http.StatusBadRequest,
			badRequest(fmt.Errorf("project name must match %s", projectNamePattern)))
		return
	}

	secret, err := auth.GenerateKey(models.RoleAdmin)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, internalError(err))
		return
	}

	project := &models.Project{Name: name, Repo: strings.TrimSpace(req.Repo)}
	bootstrapKey := &models.APIKey{
		KeyHash: auth.HashKey(secret),
		Project: name,
		Role:    models.RoleAdmin,
		Label:   "bootstrap",
	}
	if err := s.store.CreateProject(r.Context(), project, bootstrapKey); err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.writeErrorReq(w, r, http.StatusConflict,
				conflictCode(fmt.Errorf("project %s already exists", name), ErrCodeProjectExists))
			return
		}
		s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
		return
	}

	s.log().Info("project created", "project", name)
	s.writeJSON(w, http.StatusCreated, api.ProjectCreateResponse{Project: *project, AdminKey: secret})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
		return
	}
	s.writeJSON(w, http.StatusOK, names)
}

// handleDumpProject exports any project the path names. The route is
// admin-only and admin keys are not project-scoped, so no further check
// applies; an unknown name surfaces as not found from the store.
func (s *Server) handleDumpProject(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	dump, err := s.store.DumpProject(r.Context(), name)
	if err != nil {
		s.writeServiceError(w, r, mapProjectStoreError(err))
		return
	}
	s.writeJSON(w, http.StatusOK, dump)
}

func (s *Server) handleLoadProject(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var dump store.ProjectDump
	if !s.decodeJSONReq(w, r, &dump) {
		return
	}
	replace := strings.EqualFold(r.URL.Query().Get("replace"), "true")

	if err := s.store.LoadProject(r.Context(), name, dump, replace); err != nil {
		s.writeServiceError(w, r, mapProjectStoreError(err))
		return
	}

	s.log().Info("project loaded", "project", name, "tasks", len(dump.Tasks), "replace", replace)
	w.WriteHeader(http.StatusNoContent)
}

func mapProjectStoreError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFoundCode(err, ErrCodeProjectNotFound)
	}
	return mapStoreError(err)
}
