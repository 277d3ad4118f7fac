package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"beehive/internal/api"
)

const (
	signatureHeader    = "X-Hub-Signature-256"
	webhookMaxBody     = 1 << 20
	webhookActionMerge = "closed"
)

// handleMergeWebhook accepts a signed pull-request event and approves
// the pending task whose submission references the merged PR. The
// endpoint carries no bearer key; the HMAC signature over the raw body
// is the credential. Without a configured secret it stays disabled.
func (s *Server) handleMergeWebhook(w http.ResponseWriter, r *http.Request) {
	if s.webhookSecret == "" {
		s.writeErrorReq(w, r, http.StatusForbidden,
			forbidden(fmt.Errorf("merge webhook is not configured")))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhookMaxBody))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyDecodeJSONError(err))
		return
	}

	if !verifySignature(s.webhookSecret, body, r.Header.Get(signatureHeader)) {
		s.writeErrorReq(w, r, http.StatusUnauthorized,
			unauthorizedCode(fmt.Errorf("invalid webhook signature"), ErrCodeBadSignature))
		return
	}

	var event api.MergeWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyDecodeJSONError(err))
		return
	}

	if event.Action != webhookActionMerge || !event.PullRequest.Merged || event.PullRequest.HTMLURL == "" {
		s.writeJSON(w, http.StatusOK, api.MergeWebhookResponse{Approved: false})
		return
	}

	task, err := s.store.FindPendingByPRURL(r.Context(), event.PullRequest.HTMLURL)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
		return
	}
	if task == nil {
		s.log().Debug("merge webhook matched no task", "pr_url", event.PullRequest.HTMLURL)
		s.writeJSON(w, http.StatusOK, api.MergeWebhookResponse{Approved: false})
		return
	}

	approved, err := s.service.Approve(r.Context(), task.Project, task.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.log().Info("task approved via merge webhook",
		"task", approved.ID, "project", approved.Project, "pr_url", event.PullRequest.HTMLURL)
	s.writeJSON(w, http.StatusOK, api.MergeWebhookResponse{Approved: true, TaskID: approved.ID})
}

func verifySignature(secret string, body []byte, header string) bool {
	if header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(header), []byte(expected))
}
