package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/project-ledger/internal/logging"
	"github.com/project-ledger/internal/models"
	"github.com/project-ledger/internal/service"
	"github.com/project-ledger/internal/types"
)

// handleGetDashboard handles GET /api/dashboard - the full portfolio snapshot
// for the requesting user: per-project summaries, total balance, and the
// daily, weekly, and monthly activity windows.
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	snapshot, err := s.dashboardService.Snapshot(r.Context(), userID)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// watchEvent is one server-sent event on the dashboard watch stream.
type watchEvent struct {
	State    service.ViewState         `json:"state"`
	Snapshot *models.PortfolioSnapshot `json:"snapshot"`
	Error    string                    `json:"error,omitempty"`
}

// handleWatchDashboard handles GET /api/dashboard/watch - a server-sent-event
// stream of the user's dashboard. Each connection owns a refresher that
// re-derives the snapshot on connect and on every change notification for the
// user's projects and transactions, and an event is emitted after each
// completed refresh. The stream ends when the client disconnects.
func (s *Server) handleWatchDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, types.ErrCodeUnknown, "Streaming is not supported", nil)
		return
	}

	refresher := service.NewDashboardRefresher(userID, s.dashboardService, s.config.KeepStaleOnError, logging.GetGlobalLogger())
	refresher.Start(r.Context(), s.changes)
	defer refresher.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-refresher.Updates():
			state, snapshot, refreshErr := refresher.State()
			event := watchEvent{State: state, Snapshot: snapshot}
			if refreshErr != nil {
				event.Error = refreshErr.Error()
			}

			data, err := json.Marshal(event)
			if err != nil {
				logging.GetGlobalLogger().WithError(err).Error("Failed to encode dashboard watch event")
				continue
			}

			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
