package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Unauthenticated surface: health, project bootstrap and the signed
	// merge webhook.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/projects", s.handleCreateProject)
	mux.HandleFunc("POST /v1/webhooks/merge", s.handleMergeWebhook)

	// Everything else sits behind the key gate. Bee keys reach only the
	// rules marked beeAllowed; admin keys reach all of them.
	rules := []routeRule{
		{pattern: "GET /v1/tasks", handler: s.handleListTasks, beeAllowed: true},
		{pattern: "POST /v1/tasks", handler: s.handleCreateTask},
		{pattern: "POST /v1/tasks/next", handler: s.handleClaimNext, beeAllowed: true},
		{pattern: "GET /v1/tasks/{id}", handler: s.handleGetTask, beeAllowed: true},
		{pattern: "PATCH /v1/tasks/{id}", handler: s.handleUpdateTask},
		{pattern: "PATCH /v1/tasks/{id}/status", handler: s.handleUpdateStatus, beeAllowed: true},

		{pattern: "POST /v1/tasks/{id}/claim", handler: s.handleClaim, beeAllowed: true},
		{pattern: "POST /v1/tasks/{id}/release", handler: s.handleRelease},
		{pattern: "POST /v1/tasks/{id}/reopen", handler: s.handleReopen},
		{pattern: "POST /v1/tasks/{id}/submit", handler: s.handleSubmit, beeAllowed: true},
		{pattern: "POST /v1/tasks/{id}/approve", handler: s.handleApprove},
		{pattern: "POST /v1/tasks/{id}/reject", handler: s.handleReject},
		{pattern: "POST /v1/tasks/{id}/fail", handler: s.handleFail, beeAllowed: true},
		{pattern: "POST /v1/tasks/{id}/block", handler: s.handleBlock, beeAllowed: true},

		{pattern: "GET /v1/tasks/{id}/submission", handler: s.handleGetSubmission},
		{pattern: "GET /v1/tasks/{id}/log", handler: s.handleGetLog, beeAllowed: true},
		{pattern: "POST /v1/tasks/{id}/log", handler: s.handleAppendLog},

		{pattern: "GET /v1/projects", handler: s.handleListProjects},
		{pattern: "GET /v1/projects/{name}/dump", handler: s.handleDumpProject},
		{pattern: "POST /v1/projects/{name}/load", handler: s.handleLoadProject},

		{pattern: "POST /v1/keys", handler: s.handleCreateKey},
		{pattern: "GET /v1/keys", handler: s.handleListKeys},
		{pattern: "DELETE /v1/keys/{hash}", handler: s.handleRevokeKey},
	}
	for _, rule := range rules {
		mux.HandleFunc(rule.pattern, s.requireKey(rule))
	}

	return s.withRequestLogging(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
