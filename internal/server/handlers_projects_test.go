package server

import (
	"net/http"
	"strings"
	"testing"

	"beehive/internal/api"
	"beehive/internal/models"
	"beehive/internal/store"
)

func TestCreateProjectValidation(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"", "UPPER CASE", "-leading", strings.Repeat("x", 70)} {
		status, body := env.do(t, http.MethodPost, "/v1/projects", "",
			api.ProjectCreateRequest{Name: name})
		if status != http.StatusBadRequest {
			t.Errorf("name %q: status %d: %s", name, status, body)
		}
	}

	// The bootstrap project already exists.
	status, body := env.do(t, http.MethodPost, "/v1/projects", "",
		api.ProjectCreateRequest{Name: "hive"})
	if status != http.StatusConflict {
		t.Fatalf("status %d: %s", status, body)
	}
	var errResp api.ErrorResponse
	mustDecode(t, body, &errResp)
	if errResp.ErrorCode != ErrCodeProjectExists {
		t.Fatalf("unexpected error payload: %+v", errResp)
	}
}

func TestListProjectsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	beeKey := env.beeKey(t)

	// Admin only.
	status, body := env.do(t, http.MethodGet, "/v1/projects", beeKey, nil)
	if status != http.StatusForbidden {
		t.Fatalf("bee list projects: status %d: %s", status, body)
	}

	status, body = env.do(t, http.MethodGet, "/v1/projects", env.adminKey, nil)
	if status != http.StatusOK {
		t.Fatalf("status %d: %s", status, body)
	}
	var names []string
	mustDecode(t, body, &names)
	if len(names) != 1 || names[0] != "hive" {
		t.Fatalf("unexpected projects: %v", names)
	}
}

func TestKeyEndpoints(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/v1/keys", env.adminKey,
		api.KeyCreateRequest{Role: "bee", Label: "drone"})
	if status != http.StatusCreated {
		t.Fatalf("create key: status %d: %s", status, body)
	}
	var created api.KeyCreateResponse
	mustDecode(t, body, &created)
	if created.Key == "" || created.Details.Role != models.RoleBee || created.Details.Label != "drone" {
		t.Fatalf("unexpected key response: %+v", created)
	}

	status, body = env.do(t, http.MethodPost, "/v1/keys", env.adminKey,
		api.KeyCreateRequest{Role: "queen"})
	if status != http.StatusBadRequest {
		t.Fatalf("bad role: status %d: %s", status, body)
	}

	status, body = env.do(t, http.MethodGet, "/v1/keys", env.adminKey, nil)
	if status != http.StatusOK {
		t.Fatalf("list keys: status %d: %s", status, body)
	}
	var keys []models.APIKey
	mustDecode(t, body, &keys)
	if len(keys) != 2 {
		t.Fatalf("expected bootstrap + bee key, got %+v", keys)
	}

	status, body = env.do(t, http.MethodDelete, "/v1/keys/"+created.Details.KeyHash, env.adminKey, nil)
	if status != http.StatusNoContent {
		t.Fatalf("revoke: status %d: %s", status, body)
	}

	// The revoked key no longer authenticates.
	status, body = env.do(t, http.MethodGet, "/v1/tasks", created.Key, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("revoked key: status %d: %s", status, body)
	}

	status, body = env.do(t, http.MethodDelete, "/v1/keys/"+created.Details.KeyHash, env.adminKey, nil)
	if status != http.StatusNotFound {
		t.Fatalf("double revoke: status %d: %s", status, body)
	}
}

func TestDumpAndLoadEndpoints(t *testing.T) {
	env := newTestEnv(t)

	task := env.createTask(t, api.TaskCreateRequest{Description: "Exported"})

	status, body := env.do(t, http.MethodGet, "/v1/projects/hive/dump", env.adminKey, nil)
	if status != http.StatusOK {
		t.Fatalf("dump: status %d: %s", status, body)
	}
	var dump store.ProjectDump
	mustDecode(t, body, &dump)
	if dump.Project.Name != "hive" || len(dump.Tasks) != 1 || dump.Tasks[0].ID != task.ID {
		t.Fatalf("unexpected dump: %+v", dump)
	}

	// Replace the project's tasks with an imported set.
	dump.Tasks = []models.Task{{
		ID:          "hive-load",
		Project:     "hive",
		Description: "Imported",
		State:       "open",
		Priority:    models.DefaultPriority,
	}}
	status, body = env.do(t, http.MethodPost, "/v1/projects/hive/load?replace=true", env.adminKey, dump)
	if status != http.StatusNoContent {
		t.Fatalf("load: status %d: %s", status, body)
	}

	status, body = env.do(t, http.MethodGet, "/v1/tasks", env.adminKey, nil)
	if status != http.StatusOK {
		t.Fatalf("list: status %d: %s", status, body)
	}
	var tasks []models.Task
	mustDecode(t, body, &tasks)
	if len(tasks) != 1 || tasks[0].ID != "hive-load" {
		t.Fatalf("unexpected tasks after load: %+v", tasks)
	}
}
