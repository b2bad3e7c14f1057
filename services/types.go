package services

import "github.com/chi-feng/cryptosanta/room"

// Field names follow the browser client's JSON conventions.

// CreateRoomRequest creates a new room. P and g are the ElGamal group
// parameters as decimal strings; the server stores them verbatim.
type CreateRoomRequest struct {
	P                string `json:"P"`
	G                string `json:"g"`
	SessionPublicKey string `json:"sessionPublicKey"`
	ChairSecretHash  string `json:"chairSecretHash"`
}

// CreateRoomResponse returns the id of a freshly created room.
type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

// RegisterRequest registers one encrypted participant key.
type RegisterRequest struct {
	EncryptedKey string `json:"encryptedKey"`
}

// SortRequest uploads the chair's sorted key list.
type SortRequest struct {
	SortedKeys []string `json:"sortedKeys"`
}

// MessageRequest posts one encrypted address blob.
type MessageRequest struct {
	Blob string `json:"blob"`
}

// RoomResponse is the public view of a room. It omits the chair secret hash
// and exposes only the participant count, not the raw encrypted keys.
type RoomResponse struct {
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	Params           map[string]string `json:"params"`
	SessionPublicKey string            `json:"sessionPublicKey"`
	ParticipantCount int               `json:"participantCount"`
	SortedKeys       []string          `json:"sortedKeys"`
	Messages         []string          `json:"messages"`
}

// ParticipantsResponse lists the encrypted participant keys, for the Chair to
// decrypt and sort.
type ParticipantsResponse struct {
	Participants []string `json:"participants"`
}

// MessagesResponse lists the encrypted message blobs. Each participant tries
// to decrypt all of them; only one will succeed.
type MessagesResponse struct {
	Messages []string `json:"messages"`
}

// SuccessResponse acknowledges a mutation.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse carries a failure reason.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func roomResponse(r *room.Room) *RoomResponse {
	return &RoomResponse{
		ID:               r.ID,
		Status:           string(r.Status),
		Params:           map[string]string{"P": r.Params.P, "g": r.Params.G},
		SessionPublicKey: r.SessionPublicKey,
		ParticipantCount: len(r.Participants),
		SortedKeys:       r.SortedKeys,
		Messages:         r.Messages,
	}
}
