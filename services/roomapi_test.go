package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/chi-feng/cryptosanta/room"
	"github.com/chi-feng/cryptosanta/store"
	"github.com/chi-feng/cryptosanta/testutil"
)

func setupTestAPI(t *testing.T) chi.Router {
	t.Helper()

	sleeps := &testutil.SleepRecorder{}
	rooms := room.NewStore(room.Config{
		Records: store.NewMemoryStore(),
		Sleep:   sleeps.Sleep,
	})

	r := chi.NewRouter()
	NewRoomAPI(rooms, nil).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, router chi.Router, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createRoom(t *testing.T, router chi.Router, chairSecret string) string {
	t.Helper()

	w := doJSON(t, router, "POST", "/room", &CreateRoomRequest{
		P:                "23",
		G:                "5",
		SessionPublicKey: "session-pk",
		ChairSecretHash:  room.HashSecret(chairSecret),
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CreateRoomResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.RoomID)
	return resp.RoomID
}

func TestCreateRoomRequiresFields(t *testing.T) {
	router := setupTestAPI(t)

	w := doJSON(t, router, "POST", "/room", &CreateRoomRequest{P: "23", G: "5"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRoomNotFound(t *testing.T) {
	router := setupTestAPI(t)

	w := doJSON(t, router, "GET", "/room/no-such-room", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRoomHidesChairSecretHash(t *testing.T) {
	router := setupTestAPI(t)
	roomID := createRoom(t, router, "chair-secret")

	w := doJSON(t, router, "GET", "/room/"+roomID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), room.HashSecret("chair-secret"))
	require.NotContains(t, w.Body.String(), "chair_secret")

	var resp RoomResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, roomID, resp.ID)
	require.Equal(t, "OPEN", resp.Status)
	require.Equal(t, "23", resp.Params["P"])
	require.Equal(t, "5", resp.Params["g"])
	require.Equal(t, 0, resp.ParticipantCount)
}

func TestRegisterDuplicateKey(t *testing.T) {
	router := setupTestAPI(t)
	roomID := createRoom(t, router, "chair-secret")

	w := doJSON(t, router, "POST", "/room/"+roomID+"/register",
		&RegisterRequest{EncryptedKey: "key-a"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "POST", "/room/"+roomID+"/register",
		&RegisterRequest{EncryptedKey: "key-a"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, "duplicate registration", resp.Detail)
}

func TestSortRequiresChairSecret(t *testing.T) {
	router := setupTestAPI(t)
	roomID := createRoom(t, router, "chair-secret")

	for i := 0; i < 3; i++ {
		w := doJSON(t, router, "POST", "/room/"+roomID+"/register",
			&RegisterRequest{EncryptedKey: fmt.Sprintf("key-%d", i)}, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	sortReq := &SortRequest{SortedKeys: []string{"k1", "k2", "k3"}}

	// No header at all.
	w := doJSON(t, router, "POST", "/room/"+roomID+"/sort", sortReq, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Wrong secret.
	w = doJSON(t, router, "POST", "/room/"+roomID+"/sort", sortReq,
		map[string]string{"X-Chair-Secret": "wrong"})
	require.Equal(t, http.StatusForbidden, w.Code)

	// The room is untouched by rejected attempts.
	var resp RoomResponse
	w = doJSON(t, router, "GET", "/room/"+roomID, nil, nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, "OPEN", resp.Status)
}

func TestSortValidationErrors(t *testing.T) {
	router := setupTestAPI(t)
	roomID := createRoom(t, router, "chair-secret")
	auth := map[string]string{"X-Chair-Secret": "chair-secret"}

	// Fewer than 3 keys fails even with zero participants.
	w := doJSON(t, router, "POST", "/room/"+roomID+"/sort",
		&SortRequest{SortedKeys: []string{"k1", "k2"}}, auth)
	require.Equal(t, http.StatusBadRequest, w.Code)

	for i := 0; i < 3; i++ {
		doJSON(t, router, "POST", "/room/"+roomID+"/register",
			&RegisterRequest{EncryptedKey: fmt.Sprintf("key-%d", i)}, nil)
	}

	// Count mismatch.
	w = doJSON(t, router, "POST", "/room/"+roomID+"/sort",
		&SortRequest{SortedKeys: []string{"k1", "k2", "k3", "k4"}}, auth)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Duplicates.
	w = doJSON(t, router, "POST", "/room/"+roomID+"/sort",
		&SortRequest{SortedKeys: []string{"k1", "k2", "k2"}}, auth)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteRoomRequiresChairSecret(t *testing.T) {
	router := setupTestAPI(t)
	roomID := createRoom(t, router, "chair-secret")

	w := doJSON(t, router, "DELETE", "/room/"+roomID, nil,
		map[string]string{"X-Chair-Secret": "wrong"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, "DELETE", "/room/"+roomID, nil,
		map[string]string{"X-Chair-Secret": "chair-secret"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "GET", "/room/"+roomID, nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestConflictMapsTo409(t *testing.T) {
	api := NewRoomAPI(nil, nil)

	w := httptest.NewRecorder()
	api.writeStoreError(w, "register", room.ErrConflict)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestHealth(t *testing.T) {
	router := setupTestAPI(t)

	w := doJSON(t, router, "GET", "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "healthy")
}

// TestFullExchange walks the whole protocol from the server's point of view:
// create, three registrations, chair sort, three address blobs, and the spam
// cap on the fourth.
func TestFullExchange(t *testing.T) {
	router := setupTestAPI(t)
	roomID := createRoom(t, router, "chair-secret")
	auth := map[string]string{"X-Chair-Secret": "chair-secret"}

	for i := 0; i < 3; i++ {
		w := doJSON(t, router, "POST", "/room/"+roomID+"/register",
			&RegisterRequest{EncryptedKey: fmt.Sprintf("enc-key-%d", i)}, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	// The Chair fetches the encrypted keys to decrypt and sort.
	w := doJSON(t, router, "GET", "/room/"+roomID+"/participants", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var parts ParticipantsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&parts))
	require.Equal(t, []string{"enc-key-0", "enc-key-1", "enc-key-2"}, parts.Participants)

	w = doJSON(t, router, "POST", "/room/"+roomID+"/sort",
		&SortRequest{SortedKeys: []string{"sorted-1", "sorted-2", "sorted-3"}}, auth)
	require.Equal(t, http.StatusOK, w.Code)

	var view RoomResponse
	w = doJSON(t, router, "GET", "/room/"+roomID, nil, nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	require.Equal(t, "SORTED", view.Status)
	require.Len(t, view.SortedKeys, 3)

	for i := 0; i < 3; i++ {
		w = doJSON(t, router, "POST", "/room/"+roomID+"/message",
			&MessageRequest{Blob: fmt.Sprintf("address-blob-%d", i)}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		if i == 0 {
			w = doJSON(t, router, "GET", "/room/"+roomID, nil, nil)
			require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
			require.Equal(t, "MESSAGING", view.Status)
		}
	}

	// Every slot is taken; the fourth post is rejected.
	w = doJSON(t, router, "POST", "/room/"+roomID+"/message",
		&MessageRequest{Blob: "address-blob-3"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "GET", "/room/"+roomID+"/messages", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs MessagesResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&msgs))
	require.Equal(t, []string{"address-blob-0", "address-blob-1", "address-blob-2"}, msgs.Messages)
}
