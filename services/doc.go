// Package services exposes the room store over HTTP.
//
// RoomAPI translates requests into room.Store operations and maps the store's
// outcome taxonomy onto status codes: validation failures are 400, unknown or
// expired rooms 404, chair gate rejections 403, and optimistic-locking
// conflicts 409. The handlers never interpret the encrypted payloads they
// relay.
package services
