package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Strob0t/tbd/internal/domain/task"
	"github.com/Strob0t/tbd/internal/port/cache"
	"github.com/Strob0t/tbd/internal/port/messagequeue"
	"github.com/Strob0t/tbd/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	TaskLog *service.TaskLogService

	// Cache holds rendered read responses keyed by task log revision.
	// Optional.
	Cache    cache.Cache
	CacheTTL time.Duration

	// Queue is reported on /health when log entries are published.
	// Optional.
	Queue messagequeue.Queue

	// NewRand builds the random source for an activation without a seed.
	// Defaults to a source seeded from the operating system.
	NewRand func() task.Rand
}

type activeTaskResponse struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Factor      float64   `json:"factor"`
	Due         time.Time `json:"due"`
}

type pooledTaskResponse struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Factor       float64   `json:"factor"`
	Probability  float64   `json:"probability"`
	CoolDownDays int       `json:"cool_down_days"`
	DueDays      int       `json:"due_days"`
	CoolingUntil time.Time `json:"cooling_until"`
}

type scheduleRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Factor      *float64 `json:"factor"`
	DueInDays   *int     `json:"due_in_days"`
}

type poolRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Factor       *float64 `json:"factor"`
	Probability  *float64 `json:"probability"`
	CoolDownDays int      `json:"cool_down_days"`
	DueDays      *int     `json:"due_days"`
}

type activateRequest struct {
	Seed *uint64 `json:"seed"`
}

type activateResponse struct {
	Promoted []activeTaskResponse `json:"promoted"`
}

type snapshotResponse struct {
	Status   string `json:"status"`
	Location string `json:"location"`
}

func toActiveResponse(tasks []task.ActiveTask) []activeTaskResponse {
	out := make([]activeTaskResponse, len(tasks))
	for i := range tasks {
		a := &tasks[i]
		out[i] = activeTaskResponse{Title: a.Title, Description: a.Description, Factor: a.Factor, Due: a.Due}
	}
	return out
}

func toPooledResponse(tasks []task.PooledTask) []pooledTaskResponse {
	out := make([]pooledTaskResponse, len(tasks))
	for i := range tasks {
		p := &tasks[i]
		out[i] = pooledTaskResponse{
			Title:        p.Title,
			Description:  p.Description,
			Factor:       p.Factor,
			Probability:  p.Probability,
			CoolDownDays: task.InDays(p.CoolDown),
			DueDays:      task.InDays(p.DueDays),
			CoolingUntil: p.CoolingUntil,
		}
	}
	return out
}

func factorOrDefault(f *float64) float64 {
	if f == nil {
		return 1
	}
	return *f
}

// ListActiveTasks handles GET /api/v1/tasks/active
func (h *Handlers) ListActiveTasks(w http.ResponseWriter, r *http.Request) {
	h.writeCached(w, r, func(ctx context.Context) (any, error) {
		return toActiveResponse(h.TaskLog.Actives(ctx)), nil
	})
}

// ScheduleTask handles POST /api/v1/tasks/active
func (h *Handlers) ScheduleTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[scheduleRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	if !requireField(w, req.Title, "title") {
		return
	}
	if req.DueInDays == nil {
		writeError(w, http.StatusBadRequest, "due_in_days is required")
		return
	}

	a, err := h.TaskLog.Schedule(r.Context(), req.Title, req.Description, factorOrDefault(req.Factor), *req.DueInDays)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusCreated, toActiveResponse([]task.ActiveTask{a})[0])
}

// MarkDone handles POST /api/v1/tasks/active/{title}/done
func (h *Handlers) MarkDone(w http.ResponseWriter, r *http.Request) {
	title := urlParam(r, "title")
	done, err := h.TaskLog.MarkDone(r.Context(), title)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	if !done {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no active task %q", title))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPooledTasks handles GET /api/v1/tasks/pooled
func (h *Handlers) ListPooledTasks(w http.ResponseWriter, r *http.Request) {
	h.writeCached(w, r, func(ctx context.Context) (any, error) {
		return toPooledResponse(h.TaskLog.Pooled(ctx)), nil
	})
}

// PoolTask handles POST /api/v1/tasks/pooled
func (h *Handlers) PoolTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[poolRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	if !requireField(w, req.Title, "title") {
		return
	}
	if req.Probability == nil || req.DueDays == nil {
		writeError(w, http.StatusBadRequest, "probability and due_days are required")
		return
	}

	p, err := h.TaskLog.Pool(r.Context(), req.Title, req.Description, factorOrDefault(req.Factor),
		*req.Probability, req.CoolDownDays, *req.DueDays)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusCreated, toPooledResponse([]task.PooledTask{p})[0])
}

// Activate handles POST /api/v1/activate. The body is optional; a seed
// makes the draw reproducible.
func (h *Handlers) Activate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if r.ContentLength != 0 {
		var ok bool
		if req, ok = readJSON[activateRequest](w, r, defaultBodyLimit); !ok {
			return
		}
	}

	var rng task.Rand
	switch {
	case req.Seed != nil:
		rng = service.NewRand(*req.Seed)
	case h.NewRand != nil:
		rng = h.NewRand()
	default:
		rng = service.NewRand(service.RandomSeed())
	}

	promoted, err := h.TaskLog.Activate(r.Context(), rng)
	if err != nil {
		writeDomainError(w, err, "activation failed")
		return
	}
	writeJSON(w, http.StatusOK, activateResponse{Promoted: toActiveResponse(promoted)})
}

// ListEntries handles GET /api/v1/log
func (h *Handlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	h.writeCached(w, r, func(ctx context.Context) (any, error) {
		entries := h.TaskLog.Entries(ctx)
		out := make([]messagequeue.EntryPayload, 0, len(entries))
		for i := range entries {
			p, err := service.Payload(&entries[i])
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	})
}

// SaveSnapshot handles POST /api/v1/snapshot/save
func (h *Handlers) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.TaskLog.Save(r.Context()); err != nil {
		writeDomainError(w, err, "snapshot not found")
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{Status: "saved", Location: h.TaskLog.Location()})
}

// LoadSnapshot handles POST /api/v1/snapshot/load
func (h *Handlers) LoadSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.TaskLog.Load(r.Context()); err != nil {
		writeDomainError(w, err, "no snapshot saved at "+h.TaskLog.Location())
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{Status: "loaded", Location: h.TaskLog.Location()})
}

// writeCached serves a read endpoint, reusing the rendered body while the
// task log revision is unchanged.
func (h *Handlers) writeCached(w http.ResponseWriter, r *http.Request, build func(context.Context) (any, error)) {
	ctx := r.Context()
	key := fmt.Sprintf("%s@%d", r.URL.Path, h.TaskLog.Revision())

	if h.Cache != nil {
		if body, ok, err := h.Cache.Get(ctx, key); err == nil && ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			_, _ = w.Write(body)
			return
		}
	}

	v, err := build(ctx)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	body = append(body, '\n')

	if h.Cache != nil {
		if err := h.Cache.Set(ctx, key, body, h.CacheTTL); err != nil {
			slog.Warn("response cache set failed", "key", key, "error", err)
		}
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

