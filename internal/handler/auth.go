package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/rowanlk/storefront-gateway/internal/backend"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	var input backend.RegisterInput
	if err := json.Unmarshal(data, &input); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if input.Email == "" || input.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.sessions.Register(r.Context(), input)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encUser(e, user) })
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	var creds backend.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if creds.Email == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	sess := h.currentSession(r)
	user, err := h.sessions.Login(r.Context(), sess, creds)
	if err != nil {
		h.mapError(w, r, err)
		return
	}

	snap := sess.Store().Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("user")
		encUser(e, user)
		e.FieldStart("cart")
		encSnapshot(e, snap)
		e.ObjEnd()
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(r)
	h.sessions.Logout(r.Context(), sess)

	snap := sess.Store().Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encSnapshot(e, snap) })
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(r)
	if !sess.Authenticated() {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.sessions.Profile(r.Context(), sess)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encUser(e, user) })
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}

	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	var input backend.ProfileInput
	if err := json.Unmarshal(data, &input); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	user, err := h.api.UpdateProfile(r.Context(), token, input)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encUser(e, user) })
}
