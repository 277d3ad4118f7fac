package server

import (
	"net/http"

	"beehive/internal/api"
	"beehive/internal/store"
)

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}
	var req api.TaskCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	task, err := s.service.Create(r.Context(), project, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}
	filter := store.ListFilter{
		State: r.URL.Query().Get("state"),
		Role:  r.URL.Query().Get("role"),
	}

	tasks, err := s.service.List(r.Context(), project, filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}

	task, err := s.service.Get(r.Context(), project, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}
	var req api.TaskUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	task, err := s.service.Update(r.Context(), project, id, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}
	var req api.StatusUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	task, err := s.service.UpdateStatus(r.Context(), project, id, req.Status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}

	sub, err := s.service.Submission(r.Context(), project, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if sub == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleAppendLog(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}
	var req api.LogAppendRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	if err := s.service.AppendLog(r.Context(), project, id, req.Content); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	project, ok := s.requestProject(w, r)
	if !ok {
		return
	}

	entries, err := s.service.Log(r.Context(), project, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.LogResponse{Entries: entries})
}
