package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/event"
	"github.com/sells-group/research-agent/internal/memory"
	"github.com/sells-group/research-agent/internal/model"
)

type researchRequest struct {
	Query         string `json:"query"`
	Mode          string `json:"mode"`
	MaxIterations int    `json:"max_iterations"`
	SessionID     string `json:"session_id"`
}

type researchResponse struct {
	RunID     string `json:"run_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// activeRuns maps run id to its cancel func so a departed stream consumer
// can abort the work it was watching.
var activeRuns sync.Map

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleResearch accepts a query and starts the run in the background. The
// response carries the ids the client needs to attach to the stream.
func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	mode := model.Mode(req.Mode)
	if mode != model.ModeQuick {
		mode = model.ModeResearch
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	now := time.Now().UTC()
	run := &model.Run{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Query:     req.Query,
		Mode:      mode,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// The sink must exist before the response goes out so an immediate
	// stream attach finds the run.
	sink, err := s.broker.Open(r.Context(), run.ID, event.Meta{
		SessionID: sessionID,
		ReplyID:   uuid.New().String(),
	})
	if err != nil {
		zap.L().Error("api: open event sink failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not start run")
		return
	}

	// The run outlives this request; only a stream disconnect or shutdown
	// cancels it.
	runCtx, cancel := context.WithCancel(context.Background())
	activeRuns.Store(run.ID, cancel)

	go func() {
		defer func() {
			activeRuns.Delete(run.ID)
			cancel()
			if err := sink.Close(); err != nil {
				zap.L().Error("api: close sink failed", zap.String("run_id", run.ID), zap.Error(err))
			}
		}()
		if err := s.runner.Run(runCtx, run, req.MaxIterations, sink); err != nil {
			zap.L().Error("api: run failed",
				zap.String("run_id", run.ID),
				zap.Error(err),
			)
		}
	}()

	writeJSON(w, http.StatusAccepted, researchResponse{
		RunID:     run.ID,
		SessionID: sessionID,
		Status:    "started",
	})
}

// handleStream relays a run's events as SSE. Idle gaps get a ping every
// minute; the stream ends at the terminal event. A client disconnect
// cancels the run it was watching.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	sub, err := s.broker.Subscribe(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	defer sub.Cancel()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-sub.Events:
			if !ok {
				return
			}
			if err := writeSSE(w, flusher, ev); err != nil {
				return
			}
			ping.Reset(pingInterval)
			if ev.Terminal() {
				return
			}
		case <-ping.C:
			if err := writeSSE(w, flusher, event.Ping()); err != nil {
				return
			}
		case <-r.Context().Done():
			if cancel, ok := activeRuns.Load(runID); ok {
				zap.L().Info("api: stream consumer left, canceling run",
					zap.String("run_id", runID),
				)
				cancel.(context.CancelFunc)()
			}
			return
		}
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	items, total, err := s.memory.ListReports(r.Context(), memory.ListFilter{Limit: limit, Offset: offset})
	if err != nil {
		zap.L().Error("api: list reports failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list reports")
		return
	}
	if items == nil {
		items = []model.Report{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

func (s *Server) handleHistoryItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := s.memory.GetReport(r.Context(), id)
	if err != nil {
		zap.L().Error("api: get report failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load report")
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("api: encode response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev event.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: " + string(raw) + "\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
