package handlers

import (
	"errors"
	"net/http"

	"cloakroom-backend/internal/middleware"
	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/services"
	"cloakroom-backend/pkg/utils"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var serviceErrors = []errorMapping{
	{services.ErrMissingField, http.StatusBadRequest, "MissingField"},
	{services.ErrInvalidLocation, http.StatusBadRequest, "InvalidLocation"},
	{services.ErrInvalidEvent, http.StatusBadRequest, "InvalidEvent"},
	{services.ErrInvalidStatus, http.StatusBadRequest, "InvalidStatus"},
	{services.ErrInvalidDate, http.StatusBadRequest, "InvalidDate"},
	{services.ErrFilterRequired, http.StatusBadRequest, "FilterRequired"},
	{services.ErrDuplicateToken, http.StatusConflict, "DuplicateToken"},
	{services.ErrActiveEventConflict, http.StatusConflict, "ActiveEventConflict"},
	{services.ErrUserExists, http.StatusConflict, "UserExists"},
	{services.ErrEventExists, http.StatusConflict, "EventExists"},
	{services.ErrRecordNotFound, http.StatusNotFound, "RecordNotFound"},
	{services.ErrUserNotFound, http.StatusNotFound, "UserNotFound"},
	{services.ErrEventNotFound, http.StatusNotFound, "EventNotFound"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "InvalidCredentials"},
}

// writeServiceError maps a service error to its HTTP status. Storage failures
// and anything unrecognised become a bare 500 so internals do not leak.
func writeServiceError(w http.ResponseWriter, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			utils.JSON(w, m.status, errorBody{Error: err.Error(), Code: m.code})
			return
		}
	}
	utils.JSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error", Code: "StorageFailure"})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	utils.JSON(w, http.StatusBadRequest, errorBody{Error: message, Code: "BadRequest"})
}

// identity returns the authenticated caller. Routes are mounted behind the
// auth middleware, so a missing identity is a wiring error.
func identity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
	}
	return id, ok
}

func actor(r *http.Request) models.Actor {
	id, _ := middleware.IdentityFromContext(r.Context())
	return models.Actor{Username: id.Username, IP: middleware.ClientIP(r)}
}
