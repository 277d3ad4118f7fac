package server

import (
	"net/http"
	"strings"

	"beehive/internal/api"
	"beehive/internal/store"
)

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}
	var req api.ClaimRequest
	if !s.decodeJSONOptional(w, r, &req) {
		return
	}

	task, err := s.service.Claim(r.Context(), project, id, beeName(r, req.Bee))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleClaimNext(w http.ResponseWriter, r *http.Request) {
	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}
	var req api.ClaimNextRequest
	if !s.decodeJSONOptional(w, r, &req) {
		return
	}

	criteria := store.ClaimCriteria{Bee: beeName(r, req.Bee), Roles: req.Roles}
	task, err := s.service.ClaimNext(r.Context(), project, criteria)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if task == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}

	task, err := s.service.Release(r.Context(), project, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleReopen(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}

	task, err := s.service.Reopen(r.Context(), project, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}
	var req api.SubmitRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	task, err := s.service.Submit(r.Context(), project, id, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}

	task, err := s.service.Approve(r.Context(), project, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}
	var req api.RejectRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	task, err := s.service.Reject(r.Context(), project, id, req.Reason)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleFail(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}
	var req api.FailRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	task, err := s.service.Fail(r.Context(), project, id, req.Error, req.Details)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}
	var req api.BlockRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	task, err := s.service.Block(r.Context(), project, id, req.Reason)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

// beeName labels a claim with the worker's self-reported name, falling
// back to the key label so claims are always attributable.
func beeName(r *http.Request, requested string) string {
	requested = strings.TrimSpace(requested)
	if requested != "" {
		return requested
	}
	principal, ok := authPrincipalFromContext(r.Context())
	if ok && principal.Key != nil && principal.Key.Label != "" {
		return principal.Key.Label
	}
	return "bee"
}
