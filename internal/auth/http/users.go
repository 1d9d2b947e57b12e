package http

import (
	"net/http"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
	"github.com/aussiebroadwan/iamcore/internal/auth/service"
	"github.com/aussiebroadwan/iamcore/pkg/authsdk"
	"github.com/aussiebroadwan/iamcore/pkg/httpx"
)

// UsersHandler serves /users/{id}. Policies have already run.
type UsersHandler struct {
	Users *service.UserService
}

// HandleGet handles GET /users/{id}
//
//	@Summary		Get a user
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"User id"
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.APIError	"Invalid or missing access token"
//	@Failure		404	{object}	authsdk.APIError	"No such user"
//	@Router			/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(r)
	if !ok {
		authsdk.ErrNotFound.WriteError(w)
		return
	}
	u, err := h.Users.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse(u))
}

// HandleUpdate handles PUT /users/{id}
//
//	@Summary		Update a user
//	@Description	Changes email and/or role. Callers may update themselves; only admins may update others or change a role.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"User id"
//	@Param			request	body		authsdk.UpdateUserRequest	true	"Fields to change"
//	@Success		200		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.APIError	"Invalid email or role"
//	@Failure		403		{object}	authsdk.APIError	"Policy violation"
//	@Failure		404		{object}	authsdk.APIError	"No such user"
//	@Failure		409		{object}	authsdk.APIError	"Email already registered"
//	@Router			/users/{id} [put].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathUserID(r)
	if !ok {
		authsdk.ErrNotFound.WriteError(w)
		return
	}
	caller, _ := IdentityFromContext(ctx)

	var req authsdk.UpdateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	upd := domain.UserUpdate{Email: req.Email}
	if req.Role != nil {
		role, ok := domain.ParseRole(*req.Role)
		if !ok {
			authsdk.ErrInvalidRequest.WithDescription("role must be STANDARD or ADMIN").WriteError(w)
			return
		}
		upd.Role = &role
	}

	u, err := h.Users.UpdateUser(ctx, caller, id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse(u))
}

// HandleDelete handles DELETE /users/{id}
//
//	@Summary		Delete a user
//	@Description	Admin only. Also revokes the user's refresh token.
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	int	true	"User id"
//	@Success		204
//	@Failure		403	{object}	authsdk.APIError	"User is not an admin"
//	@Failure		404	{object}	authsdk.APIError	"No such user"
//	@Router			/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(r)
	if !ok {
		authsdk.ErrNotFound.WriteError(w)
		return
	}
	if err := h.Users.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userResponse(u domain.User) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		TFAEnabled: u.TFAEnabled,
		Role:       u.Role.String(),
	}
}
