package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dispatchops/api/internal/dispatch"
)

const heartbeatEvery = 25 * time.Second

type groupsChangedEvent struct {
	ID     string    `json:"id"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
	Board  boardView `json:"board"`
}

// handleEvents streams groupsChanged as server-sent events. A "ready" event
// is sent once the subscription is in place. Slow clients miss events
// rather than block the store.
func (a *App) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeAPIError(w, http.StatusInternalServerError, "INTERNAL", "streaming unsupported")
		return
	}

	events := make(chan dispatch.GroupsChanged, 8)
	unsubscribe := a.store.Subscribe(func(ev dispatch.GroupsChanged) {
		select {
		case events <- ev:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "event: ready\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-events:
			data, err := json.Marshal(groupsChangedEvent{
				ID:     ev.ID.String(),
				Reason: ev.Reason,
				At:     ev.At,
				Board:  newBoardView(ev.Board),
			})
			if err != nil {
				a.log.WithError(err).Error("encode groupsChanged")
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: groupsChanged\ndata: %s\n\n", ev.ID, data)
			flusher.Flush()
		}
	}
}
