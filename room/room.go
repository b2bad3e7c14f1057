package room

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is a room's lifecycle state. Transitions only move forward:
// OPEN -> SORTED -> MESSAGING.
type Status string

const (
	// StatusOpen is the registration phase.
	StatusOpen Status = "OPEN"
	// StatusSorted means the Chair has uploaded the sorted keys.
	StatusSorted Status = "SORTED"
	// StatusMessaging means at least one address blob has been posted.
	StatusMessaging Status = "MESSAGING"
)

// Params holds the ElGamal group parameters as decimal strings. The server
// never parses them as numbers.
type Params struct {
	P string `json:"P"`
	G string `json:"g"`
}

// Room is the record stored per bulletin board.
//
// Participants, SortedKeys and Messages hold ciphertext the server cannot
// read. Version is the optimistic-lock token: it starts at 0 and increases by
// exactly 1 on every accepted mutation.
type Room struct {
	ID               string    `json:"id"`
	Status           Status    `json:"status"`
	Params           Params    `json:"params"`
	SessionPublicKey string    `json:"session_public_key"`
	ChairSecretHash  string    `json:"chair_secret_hash"`
	Participants     []string  `json:"participants"`
	SortedKeys       []string  `json:"sorted_keys"`
	Messages         []string  `json:"messages"`
	CreatedAt        time.Time `json:"created_at"`
	Version          int       `json:"version"`
}

// clone returns a deep copy. Mutations operate on a copy so a failed CAS
// attempt never leaks partial state into a retry.
func (r *Room) clone() *Room {
	c := *r
	c.Participants = append([]string(nil), r.Participants...)
	c.SortedKeys = append([]string(nil), r.SortedKeys...)
	c.Messages = append([]string(nil), r.Messages...)
	return &c
}

func (r *Room) marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshaling room %s: %w", r.ID, err)
	}
	return data, nil
}

func unmarshalRoom(data []byte) (*Room, error) {
	var r Room
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshaling room record: %w", err)
	}
	return &r, nil
}
