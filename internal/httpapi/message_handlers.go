package httpapi

import (
	"net/http"

	"github.com/esrabs/evaluation-commerciale-be/internal/obs"
)

type sendMessageRequest struct {
	RecipientID string `json:"recipient_id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
}

func (a *API) handleMessagesCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	act, ok := actor(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := a.messages.Send(r.Context(), act, req.RecipientID, req.Title, req.Body)
	if err != nil {
		handleError(w, r, err)
		return
	}
	obs.MessageSent()
	w.Header().Set("Location", "/v1/messages/"+msg.ID)
	writeJSON(w, http.StatusCreated, msg)
}

func (a *API) handleMessageResource(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := splitResource(r.URL.Path, "/v1/messages/")
	if !ok || (sub != "" && sub != "read") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	act, ok := actor(w, r)
	if !ok {
		return
	}

	if sub == "read" {
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		msg, err := a.messages.MarkRead(r.Context(), act, id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
		return
	}

	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	switch id {
	case "inbox":
		list, err := a.messages.Inbox(r.Context(), act)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items(list))
	case "outbox":
		list, err := a.messages.Outbox(r.Context(), act)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items(list))
	default:
		msg, err := a.messages.Get(r.Context(), act, id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}
