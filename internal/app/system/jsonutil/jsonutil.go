// Package jsonutil provides helper functions for JSON API responses.
//
// Handlers use these to keep Content-Type headers and error bodies
// consistent across the API surface. Classified errors (fault.Fault) map to
// their HTTP status via Fail.
package jsonutil

import (
	"encoding/json"
	"net/http"

	"github.com/jwagner/imagevault/internal/app/system/fault"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// OK writes a 200 OK JSON response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 Created JSON response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// Error writes an error response with the given status code.
// The response body is {"error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Fail writes an error response whose status follows the fault taxonomy:
// NotFound 404, Conflict 409, InvalidArgument 400, PermissionDenied 403,
// IOFailure 502, everything else 500. Unclassified errors get a generic
// body so internal details never reach clients.
func Fail(w http.ResponseWriter, err error) {
	kind := fault.KindOf(err)
	if kind == fault.Unknown {
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	Error(w, fault.HTTPStatus(kind), err.Error())
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// Unauthorized writes a 401 Unauthorized error response.
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

// InternalError writes a 500 Internal Server Error response. Log the actual
// error separately; do not expose internals to clients.
func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}
