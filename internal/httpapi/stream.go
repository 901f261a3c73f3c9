package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/esrabs/evaluation-commerciale-be/internal/org"
	"github.com/esrabs/evaluation-commerciale-be/internal/stream"
)

// Stream handles Server-Sent Events for recorded sales. Each actor only
// receives the sales it could read through the ledger.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.stream == nil {
		writeError(w, r, http.StatusServiceUnavailable, "streaming disabled")
		return
	}
	act, ok := actor(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.stream.Subscribe(ctx)

	// Send an initial comment to establish the stream
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for event := range ch {
		if !a.streamVisible(ctx, act, event) {
			continue
		}
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("event: sale\ndata: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}

func (a *API) streamVisible(ctx context.Context, act org.Actor, evt stream.SaleEvent) bool {
	if act.Role != org.RoleManager {
		return stream.Visible(nil, act, evt)
	}
	snap, err := a.directory.Snapshot(ctx)
	if err != nil {
		return false
	}
	return stream.Visible(org.NewIndex(snap), act, evt)
}
