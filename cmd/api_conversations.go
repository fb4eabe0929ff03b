package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/agrimate/internal/conversation"
	"github.com/sells-group/agrimate/internal/model"
)

const msgConversationNotFound = "Conversation not found."

type conversationList struct {
	Conversations        []model.Conversation `json:"conversations"`
	ActiveConversationID string               `json:"activeConversationId,omitempty"`
}

func (a *api) conversationRoutes(r chi.Router) {
	r.Get("/", a.listConversations)
	r.Post("/", a.createConversation)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", a.getConversation)
		r.Patch("/", a.renameConversation)
		r.Delete("/", a.deleteConversation)
		r.Post("/active", a.activateConversation)
		r.Post("/messages", a.addConversationMessage)
		r.Delete("/messages", a.clearConversation)
	})
}

func (a *api) listConversations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, conversationList{
		Conversations:        a.history.List(),
		ActiveConversationID: a.history.ActiveID(),
	})
}

func (a *api) createConversation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, a.history.Create(r.Context()))
}

func (a *api) getConversation(w http.ResponseWriter, r *http.Request) {
	c, err := a.history.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeConversationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *api) renameConversation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Title) == "" {
		writeError(w, http.StatusBadRequest, "Title is required.")
		return
	}
	c, err := a.history.Rename(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(body.Title))
	if err != nil {
		writeConversationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *api) deleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := a.history.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeConversationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) activateConversation(w http.ResponseWriter, r *http.Request) {
	if err := a.history.SetActive(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeConversationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) addConversationMessage(w http.ResponseWriter, r *http.Request) {
	var m model.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
		writeError(w, http.StatusBadRequest, "Role must be user or assistant.")
		return
	}
	saved, err := a.history.AddMessage(r.Context(), chi.URLParam(r, "id"), m)
	if err != nil {
		writeConversationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (a *api) clearConversation(w http.ResponseWriter, r *http.Request) {
	c, err := a.history.Clear(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeConversationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func writeConversationError(w http.ResponseWriter, err error) {
	if errors.Is(err, conversation.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgConversationNotFound)
		return
	}
	writeError(w, http.StatusInternalServerError, msgRequestFailed)
}
