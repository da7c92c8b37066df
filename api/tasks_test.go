package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/qri-io/jsonschema"

	"github.com/shiftlog/shiftlog/api"
	"github.com/shiftlog/shiftlog/pkg/models"
	"github.com/shiftlog/shiftlog/pkg/repository/mock"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, sub string, role models.Role, name, shift string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"role":  string(role),
		"name":  name,
		"shift": shift,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func taskSchema(t *testing.T) *jsonschema.Schema {
	t.Helper()
	raw := []byte(`{
		"type": "object",
		"required": ["area", "workType", "description", "signature"],
		"properties": {
			"area": {"type": "string"},
			"workType": {"type": "string"},
			"description": {"type": "string"},
			"signature": {"type": "string"}
		}
	}`)
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(raw, rs); err != nil {
		t.Fatalf("compile schema: %v", err)
	}
	return rs
}

func newTasksRouter(t *testing.T, m *mock.Mocks) *mux.Router {
	t.Helper()
	h := api.NewTasksHandler(m.Tasks, taskSchema(t))

	r := mux.NewRouter()
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(api.JWTAuthMiddlewareWithSecret(testSecret))
	protected.HandleFunc("/tasks", h.List).Methods("GET")
	protected.HandleFunc("/tasks/{id}", h.Upsert).Methods("PUT")

	adminOnly := protected.NewRoute().Subrouter()
	adminOnly.Use(api.RequireAdmin)
	adminOnly.HandleFunc("/tasks/{id}", h.Delete).Methods("DELETE")
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func validTaskBody(id string) map[string]any {
	return map[string]any{
		"id":          id,
		"area":        "Pailería",
		"workType":    "Correctivo",
		"description": "Cambio de válvula",
		"signature":   "data:image/png;base64,AAAA",
		"createdAt":   "2026-08-29T08:00:00.000Z",
	}
}

func TestListTasksIncludesTombstones(t *testing.T) {
	m := mock.NewMocks()
	m.Tasks.ByID["a"] = models.Job{ID: "a", Area: "Eléctrico", CreatedAt: "2026-08-29T10:00:00.000Z"}
	m.Tasks.ByID["b"] = models.Job{ID: "b", Area: "Mecánico", CreatedAt: "2026-08-29T09:00:00.000Z", Deleted: true}

	r := newTasksRouter(t, m)
	token := signToken(t, "tech_1", models.RoleTech, "Alice", "Matutino")
	rec := doJSON(t, r, http.MethodGet, "/api/tasks", token, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var env struct {
		Data []models.Job `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(env.Data) != 2 {
		t.Fatalf("got %d tasks, want 2 (tombstones included)", len(env.Data))
	}
	if env.Data[0].ID != "a" {
		t.Fatalf("newest first: got %s", env.Data[0].ID)
	}
}

func TestListTasksEmptyIsArray(t *testing.T) {
	m := mock.NewMocks()
	r := newTasksRouter(t, m)
	token := signToken(t, "tech_1", models.RoleTech, "Alice", "Matutino")
	rec := doJSON(t, r, http.MethodGet, "/api/tasks", token, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"data":[]`)) {
		t.Fatalf("empty list must encode as []: %s", rec.Body.String())
	}
}

func TestUpsertTask(t *testing.T) {
	techToken := func(t *testing.T) string { return signToken(t, "tech_1", models.RoleTech, "Alice", "Vespertino") }
	adminToken := func(t *testing.T) string { return signToken(t, "admin_1", models.RoleAdmin, "Rene", "Matutino") }

	tests := []struct {
		name       string
		token      func(t *testing.T) string
		path       string
		body       map[string]any
		prepare    func(m *mock.Mocks)
		wantStatus int
		check      func(t *testing.T, m *mock.Mocks)
	}{
		{
			name:       "CreateAttributesAuthor",
			token:      techToken,
			path:       "/api/tasks/job-1",
			body:       validTaskBody("job-1"),
			prepare:    func(m *mock.Mocks) {},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, m *mock.Mocks) {
				got := m.Tasks.ByID["job-1"]
				if got.TechnicianName != "Alice" || got.Shift != "Vespertino" {
					t.Fatalf("attribution: %+v", got)
				}
			},
		},
		{
			name:  "UpdateKeepsIdentityFields",
			token: adminToken,
			path:  "/api/tasks/job-1",
			body: func() map[string]any {
				b := validTaskBody("job-1")
				b["technicianName"] = "Impostor"
				b["shift"] = "Nocturno"
				b["createdAt"] = "2030-01-01T00:00:00.000Z"
				b["description"] = "Descripción nueva"
				return b
			}(),
			prepare: func(m *mock.Mocks) {
				m.Tasks.ByID["job-1"] = models.Job{
					ID: "job-1", Area: "Pailería", WorkType: "Correctivo",
					Description: "Original", Signature: "sig",
					TechnicianName: "Alice", Shift: "Vespertino",
					CreatedAt: "2026-08-29T08:00:00.000Z",
				}
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, m *mock.Mocks) {
				got := m.Tasks.ByID["job-1"]
				if got.TechnicianName != "Alice" || got.Shift != "Vespertino" || got.CreatedAt != "2026-08-29T08:00:00.000Z" {
					t.Fatalf("identity fields must be immutable: %+v", got)
				}
				if got.Description != "Descripción nueva" {
					t.Fatalf("content not updated: %+v", got)
				}
			},
		},
		{
			name:  "MissingRequiredField",
			token: techToken,
			path:  "/api/tasks/job-2",
			body: func() map[string]any {
				b := validTaskBody("job-2")
				delete(b, "signature")
				return b
			}(),
			prepare:    func(m *mock.Mocks) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "BlankRequiredField",
			token: techToken,
			path:  "/api/tasks/job-2",
			body: func() map[string]any {
				b := validTaskBody("job-2")
				b["description"] = "   "
				return b
			}(),
			prepare:    func(m *mock.Mocks) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "TechCannotSetDeleted",
			token: techToken,
			path:  "/api/tasks/job-1",
			body: func() map[string]any {
				b := validTaskBody("job-1")
				b["deleted"] = true
				return b
			}(),
			prepare: func(m *mock.Mocks) {
				m.Tasks.ByID["job-1"] = models.Job{ID: "job-1", Area: "A", WorkType: "W", Description: "D", Signature: "S"}
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:  "AdminDeleteMissingIs404",
			token: adminToken,
			path:  "/api/tasks/ghost",
			body: func() map[string]any {
				b := validTaskBody("ghost")
				b["deleted"] = true
				return b
			}(),
			prepare:    func(m *mock.Mocks) {},
			wantStatus: http.StatusNotFound,
		},
		{
			name:  "AdminDeleteViaUpsert",
			token: adminToken,
			path:  "/api/tasks/job-1",
			body: func() map[string]any {
				b := validTaskBody("job-1")
				b["deleted"] = true
				return b
			}(),
			prepare: func(m *mock.Mocks) {
				m.Tasks.ByID["job-1"] = models.Job{ID: "job-1", Area: "A", WorkType: "W", Description: "D", Signature: "S"}
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, m *mock.Mocks) {
				if !m.Tasks.ByID["job-1"].Deleted {
					t.Fatal("row not tombstoned")
				}
			},
		},
		{
			name:       "BodyIDIgnoredPathWins",
			token:      techToken,
			path:       "/api/tasks/path-id",
			body:       validTaskBody("body-id"),
			prepare:    func(m *mock.Mocks) {},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, m *mock.Mocks) {
				if _, ok := m.Tasks.ByID["path-id"]; !ok {
					t.Fatalf("stored under wrong id: %v", m.Tasks.ByID)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := mock.NewMocks()
			tc.prepare(m)
			r := newTasksRouter(t, m)

			rec := doJSON(t, r, http.MethodPut, tc.path, tc.token(t), tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if tc.check != nil {
				tc.check(t, m)
			}
		})
	}
}

func TestDeleteTask(t *testing.T) {
	tests := []struct {
		name       string
		sub        string
		role       models.Role
		path       string
		prepare    func(m *mock.Mocks)
		wantStatus int
	}{
		{
			name: "AdminDeletes",
			sub:  "admin_1", role: models.RoleAdmin,
			path: "/api/tasks/job-1",
			prepare: func(m *mock.Mocks) {
				m.Tasks.ByID["job-1"] = models.Job{ID: "job-1"}
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "TechForbidden",
			sub:  "tech_1", role: models.RoleTech,
			path: "/api/tasks/job-1",
			prepare: func(m *mock.Mocks) {
				m.Tasks.ByID["job-1"] = models.Job{ID: "job-1"}
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "MissingRowIs404",
			sub:  "admin_1", role: models.RoleAdmin,
			path:       "/api/tasks/ghost",
			prepare:    func(m *mock.Mocks) {},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := mock.NewMocks()
			tc.prepare(m)
			r := newTasksRouter(t, m)

			token := signToken(t, tc.sub, tc.role, "X", "Matutino")
			rec := doJSON(t, r, http.MethodDelete, tc.path, token, nil)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if tc.wantStatus == http.StatusOK && !m.Tasks.ByID["job-1"].Deleted {
				t.Fatal("row not tombstoned")
			}
		})
	}
}
