package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chi-feng/cryptosanta/metrics"
	"github.com/chi-feng/cryptosanta/room"
)

// chairSecretHeader carries the plaintext chair secret on chair-only routes.
const chairSecretHeader = "X-Chair-Secret"

// RoomAPI serves the bulletin-board endpoints over a room store.
type RoomAPI struct {
	store *room.Store
	log   *slog.Logger
}

// NewRoomAPI creates the API handler.
func NewRoomAPI(store *room.Store, log *slog.Logger) *RoomAPI {
	if log == nil {
		log = slog.Default()
	}
	return &RoomAPI{store: store, log: log}
}

// RegisterRoutes mounts all room endpoints on the router.
func (a *RoomAPI) RegisterRoutes(r chi.Router) {
	r.Post("/room", a.handleCreateRoom)
	r.Get("/room/{roomID}", a.handleGetRoom)
	r.Delete("/room/{roomID}", a.handleDeleteRoom)
	r.Post("/room/{roomID}/register", a.handleRegister)
	r.Get("/room/{roomID}/participants", a.handleGetParticipants)
	r.Post("/room/{roomID}/sort", a.handleSort)
	r.Post("/room/{roomID}/message", a.handlePostMessage)
	r.Get("/room/{roomID}/messages", a.handleGetMessages)
	r.Get("/health", a.handleHealth)
}

func (a *RoomAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (a *RoomAPI) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	metrics.IncRequest("create_room")

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.P == "" || req.G == "" || req.SessionPublicKey == "" || req.ChairSecretHash == "" {
		writeError(w, http.StatusBadRequest, "P, g, sessionPublicKey and chairSecretHash are required")
		return
	}

	created, err := a.store.Create(
		room.Params{P: req.P, G: req.G},
		req.SessionPublicKey,
		req.ChairSecretHash,
	)
	if err != nil {
		a.log.Error("create room failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, &CreateRoomResponse{RoomID: created.ID})
}

func (a *RoomAPI) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	metrics.IncRequest("get_room")

	rm, err := a.store.Get(chi.URLParam(r, "roomID"))
	if err != nil {
		a.writeStoreError(w, "get_room", err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse(rm))
}

func (a *RoomAPI) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	metrics.IncRequest("delete_room")
	roomID := chi.URLParam(r, "roomID")

	rm, err := a.store.Get(roomID)
	if err != nil {
		a.writeStoreError(w, "delete_room", err)
		return
	}
	if !room.VerifyChairSecret(r.Header.Get(chairSecretHeader), rm.ChairSecretHash) {
		writeError(w, http.StatusForbidden, "invalid chair secret")
		return
	}

	if err := a.store.Delete(roomID); err != nil {
		a.writeStoreError(w, "delete_room", err)
		return
	}
	writeJSON(w, http.StatusOK, &SuccessResponse{Success: true})
}

func (a *RoomAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	metrics.IncRequest("register")

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EncryptedKey == "" {
		writeError(w, http.StatusBadRequest, "encryptedKey is required")
		return
	}

	if err := a.store.RegisterParticipant(chi.URLParam(r, "roomID"), req.EncryptedKey); err != nil {
		a.writeStoreError(w, "register", err)
		return
	}
	writeJSON(w, http.StatusOK, &SuccessResponse{Success: true})
}

func (a *RoomAPI) handleGetParticipants(w http.ResponseWriter, r *http.Request) {
	metrics.IncRequest("get_participants")

	rm, err := a.store.Get(chi.URLParam(r, "roomID"))
	if err != nil {
		a.writeStoreError(w, "get_participants", err)
		return
	}
	writeJSON(w, http.StatusOK, &ParticipantsResponse{Participants: rm.Participants})
}

func (a *RoomAPI) handleSort(w http.ResponseWriter, r *http.Request) {
	metrics.IncRequest("sort")
	roomID := chi.URLParam(r, "roomID")

	var req SortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The gate is checked against the room before attempting the sort so an
	// unauthorized caller learns nothing about the room's state.
	rm, err := a.store.Get(roomID)
	if err != nil {
		a.writeStoreError(w, "sort", err)
		return
	}
	if !room.VerifyChairSecret(r.Header.Get(chairSecretHeader), rm.ChairSecretHash) {
		writeError(w, http.StatusForbidden, "invalid chair secret")
		return
	}

	if err := a.store.SetSortedKeys(roomID, req.SortedKeys); err != nil {
		a.writeStoreError(w, "sort", err)
		return
	}
	writeJSON(w, http.StatusOK, &SuccessResponse{Success: true})
}

func (a *RoomAPI) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	metrics.IncRequest("post_message")

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Blob == "" {
		writeError(w, http.StatusBadRequest, "blob is required")
		return
	}

	if err := a.store.PostMessage(chi.URLParam(r, "roomID"), req.Blob); err != nil {
		a.writeStoreError(w, "post_message", err)
		return
	}
	writeJSON(w, http.StatusOK, &SuccessResponse{Success: true})
}

func (a *RoomAPI) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	metrics.IncRequest("get_messages")

	rm, err := a.store.Get(chi.URLParam(r, "roomID"))
	if err != nil {
		a.writeStoreError(w, "get_messages", err)
		return
	}
	writeJSON(w, http.StatusOK, &MessagesResponse{Messages: rm.Messages})
}

// writeStoreError maps the room store's error taxonomy to HTTP status codes.
func (a *RoomAPI) writeStoreError(w http.ResponseWriter, route string, err error) {
	var ve *room.ValidationError
	switch {
	case errors.Is(err, room.ErrNotFound):
		writeError(w, http.StatusNotFound, "Room not found")
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Reason)
	case errors.Is(err, room.ErrConflict):
		metrics.IncConflict(route)
		writeError(w, http.StatusConflict, err.Error())
	default:
		a.log.Error("room store error", "route", route, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, &ErrorResponse{Detail: detail})
}
