package handlers

import (
	"net/http"

	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/services"
	"cloakroom-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	Service *services.UserService
}

func NewUserHandler(s *services.UserService) *UserHandler {
	return &UserHandler{Service: s}
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	user, err := h.Service.CreateUser(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, user)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Service.GetUser(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

// DeleteUser deletes a user together with the records held at the user's
// location. ?purge_records=false keeps the records.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	purge := boolParamOr(r.URL.Query(), "purge_records", true)
	res, err := h.Service.DeleteUser(r.Context(), actor(r), mux.Vars(r)["username"], purge)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	body := map[string]any{"message": "User deleted"}
	if res != nil {
		body["records"] = res
	}
	utils.JSON(w, http.StatusOK, body)
}
