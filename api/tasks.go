package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/qri-io/jsonschema"

	"github.com/shiftlog/shiftlog/pkg/models"
	"github.com/shiftlog/shiftlog/pkg/repository"
)

type TasksHandler struct {
	taskRepo repository.TaskRepo
	schema   *jsonschema.Schema
}

// NewTasksHandler creates the handler. schema may be nil, in which case only
// the hand-written field checks run.
func NewTasksHandler(tr repository.TaskRepo, schema *jsonschema.Schema) *TasksHandler {
	return &TasksHandler{taskRepo: tr, schema: schema}
}

// List returns the full job array, tombstones included, so that a syncing
// device can propagate deletions without waiting for its prune pass.
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskRepo.ListTasks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "No se pudieron descargar las tareas en la nube.")
		return
	}
	if tasks == nil {
		tasks = []models.Job{}
	}

	writeData(w, http.StatusOK, tasks)
}

// Upsert stores the full record under the path id. A requested deletion
// needs the admin role and an existing row.
func (h *TasksHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(mux.Vars(r)["id"])
	if taskID == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "ID de tarea inválido.")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "Cuerpo de la petición inválido.")
		return
	}

	ctx := r.Context()

	if h.schema != nil {
		if errs, err := h.schema.ValidateBytes(ctx, body); err != nil || len(errs) > 0 {
			writeError(w, http.StatusBadRequest, codeValidation, "Faltan campos obligatorios para guardar la tarea.")
			return
		}
	}

	var task models.Job
	if err := json.Unmarshal(body, &task); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "Cuerpo de la petición inválido.")
		return
	}

	task.ID = taskID
	task.Area = strings.TrimSpace(task.Area)
	task.WorkType = strings.TrimSpace(task.WorkType)
	task.Description = strings.TrimSpace(task.Description)
	task.Signature = strings.TrimSpace(task.Signature)

	if task.Area == "" || task.WorkType == "" || task.Description == "" || task.Signature == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "Faltan campos obligatorios para guardar la tarea.")
		return
	}

	claims, _ := ClaimsFromContext(ctx)

	if task.Deleted && claims.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, codeForbidden, "Solo el administrador puede borrar tareas.")
		return
	}

	existing, err := h.taskRepo.GetTask(ctx, taskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "No se pudo guardar la tarea en la nube.")
		return
	}

	if existing == nil {
		if task.Deleted {
			writeError(w, http.StatusNotFound, codeNotFound, "No se encontró la tarea a borrar.")
			return
		}
		// new rows are attributed to the authenticated session
		task.TechnicianName = claims.Name
		if task.Shift == "" {
			task.Shift = claims.Shift
		}
	} else {
		// identity fields are immutable after creation
		task.TechnicianName = existing.TechnicianName
		task.Shift = existing.Shift
		task.CreatedAt = existing.CreatedAt
	}

	if err := h.taskRepo.UpsertTask(ctx, &task); err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "No se pudo guardar la tarea en la nube.")
		return
	}

	writeData(w, http.StatusOK, task)
}

// Delete soft-deletes a row. Admin only; routed through RequireAdmin.
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(mux.Vars(r)["id"])
	if taskID == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "ID de tarea inválido.")
		return
	}

	found, err := h.taskRepo.SoftDeleteTask(r.Context(), taskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "No se pudo borrar la tarea en la nube.")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, codeNotFound, "No se encontró la tarea.")
		return
	}

	writeData(w, http.StatusOK, map[string]any{"id": taskID, "deleted": true})
}
