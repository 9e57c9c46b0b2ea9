package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmrzaf/sdcatalog/internal/app"
	"github.com/mmrzaf/sdcatalog/internal/domain"
	"github.com/mmrzaf/sdcatalog/internal/logging"
	"github.com/mmrzaf/sdcatalog/internal/timeutil"
	"github.com/mmrzaf/sdcatalog/internal/validation"
)

const maxTaskListLimit = 500

type Handler struct {
	catalogue *app.CatalogueService
	tasks     *app.TaskService
	logger    *logging.Logger
	now       func() time.Time
}

func NewHandler(catalogue *app.CatalogueService, tasks *app.TaskService, logger *logging.Logger) *Handler {
	return &Handler{
		catalogue: catalogue,
		tasks:     tasks,
		logger:    logger.WithComponent("api"),
		now:       time.Now,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type datasetRequest struct {
	Node    string `json:"node"`
	Path    string `json:"path"`
	Disease string `json:"disease"`
}

type datasetListResponse struct {
	Datasets []*domain.Dataset `json:"datasets"`
}

type purgeResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

type taskCreatedResponse struct {
	TaskID    string            `json:"task_id"`
	CreatedAt time.Time         `json:"created_at"`
	Status    domain.TaskStatus `json:"status"`
}

// taskRequest keeps n_sample a pointer so an absent field is told apart from 0.
type taskRequest struct {
	Username  string `json:"username"`
	Model     string `json:"model"`
	NSample   *int64 `json:"n_sample"`
	Disease   string `json:"disease"`
	Condition string `json:"condition"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type statusUpdatedResponse struct {
	Message string            `json:"message"`
	TaskID  string            `json:"task_id"`
	Status  domain.TaskStatus `json:"status"`
}

type taskStatusResponse struct {
	TaskID string            `json:"task_id"`
	Status domain.TaskStatus `json:"status"`
}

type taskListResponse struct {
	Tasks []*domain.Task `json:"tasks"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Datasets

func (h *Handler) CreateDataset(w http.ResponseWriter, r *http.Request) {
	var req datasetRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, domain.NewValidationError("", "invalid json: "+err.Error()))
		return
	}
	if _, err := h.catalogue.Insert(r.Context(), req.Node, req.Path, req.Disease); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Metadata uploaded successfully"})
}

func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	disease := r.PathValue("disease")
	node := r.URL.Query().Get("node")
	ds, err := h.catalogue.FindOne(r.Context(), node, disease)
	if err != nil {
		if domain.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, errorResponse{
				Error: fmt.Sprintf("No dataset found in the database for node: %s and disease: %s", node, disease),
			})
			return
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalogue.ListAll(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(list) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "No datasets found"})
		return
	}
	writeJSON(w, http.StatusOK, datasetListResponse{Datasets: list})
}

func (h *Handler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := q.Get("path")
	removed, err := h.catalogue.DeleteOne(r.Context(), q.Get("node"), q.Get("disease"), path)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("Dataset '%s' not found.", path)})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Dataset '%s' deleted successfully.", path)})
}

func (h *Handler) DeleteAllDatasets(w http.ResponseWriter, r *http.Request) {
	n, err := h.catalogue.DeleteAll(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, purgeResponse{Message: "All datasets deleted successfully.", Deleted: n})
}

// Tasks

func (h *Handler) RegisterTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, domain.NewValidationError("", "invalid json: "+err.Error()))
		return
	}
	if req.NSample == nil {
		h.writeError(w, domain.NewValidationError("n_sample", "is required"))
		return
	}
	task, err := h.tasks.RegisterTask(r.Context(), &domain.TaskRequest{
		Username:  req.Username,
		Model:     req.Model,
		NSample:   *req.NSample,
		Disease:   req.Disease,
		Condition: req.Condition,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, taskCreatedResponse{
		TaskID:    task.ID,
		CreatedAt: task.CreatedAt,
		Status:    task.Status,
	})
}

func (h *Handler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req statusRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, domain.NewValidationError("", "invalid json: "+err.Error()))
		return
	}
	status, err := validation.ParseStatus(req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.tasks.UpdateStatus(r.Context(), id, status); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusUpdatedResponse{
		Message: "Task status updated successfully",
		TaskID:  id,
		Status:  status,
	})
}

func (h *Handler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	status, err := h.tasks.GetStatus(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskStatusResponse{TaskID: id, Status: status})
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseTaskFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	list, err := h.tasks.ListTasks(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskListResponse{Tasks: list})
}

func (h *Handler) parseTaskFilter(r *http.Request) (domain.TaskFilter, error) {
	q := r.URL.Query()
	var filter domain.TaskFilter
	if s := q.Get("status"); s != "" {
		st, err := validation.ParseStatus(s)
		if err != nil {
			return filter, err
		}
		filter.Status = st
	}
	if s := q.Get("since"); s != "" {
		t, err := timeutil.ParseSince(s, h.now())
		if err != nil {
			return filter, domain.NewValidationError("since", err.Error())
		}
		filter.CreatedAfter = &t
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxTaskListLimit {
			return filter, domain.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", maxTaskListLimit))
		}
		filter.Limit = n
	}
	return filter, nil
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps a service error to its HTTP status. Storage details stay
// in the log.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: notFoundMessage(err)})
	case errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.logger.Errorw("request.failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal storage error"})
	}
}

// notFoundMessage drops the service prefix ("get task status: ") so the
// client sees only the subject.
func notFoundMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "+domain.ErrNotFound.Error()); i >= 0 {
		subject := msg[:i]
		if j := strings.LastIndex(subject, ": "); j >= 0 {
			subject = subject[j+2:]
		}
		return subject + " not found"
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSONStrict(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
