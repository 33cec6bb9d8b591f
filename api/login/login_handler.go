package login

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	reqctx "lattice/api/shared/context"
	"lattice/api/shared/response"
	"lattice/infrastructure/apperr"
	"lattice/infrastructure/sqlite"
	"lattice/infrastructure/token"
	"lattice/models"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string         `json:"token"`
	User  token.Identity `json:"user"`
}

// CreateLoginHandler authenticates the user and returns a signed token.
func CreateLoginHandler(db *sqlite.DB, tokens *token.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := response.DecodeJSON(r, &req); err != nil {
			response.Error(w, err)
			return
		}
		if strings.TrimSpace(req.Username) == "" || req.Password == "" {
			response.Error(w, apperr.Validation("username and password are required"))
			return
		}

		user, err := authenticateUser(r.Context(), db, req.Username, req.Password)
		if err != nil {
			if err != ErrInvalidCredentials {
				zap.L().Error("login: authentication failed", zap.Error(err))
			}
			response.Error(w, err)
			return
		}

		identity := IdentityOf(user)
		signed, err := tokens.Issue(identity)
		if err != nil {
			zap.L().Error("login: sign token", zap.Error(err))
			response.Error(w, err)
			return
		}
		zap.L().Info("login: user signed in", zap.String("username", user.Username))
		response.JSON(w, http.StatusOK, loginResponse{Token: signed, User: identity})
	}
}

// MeHandler returns the identity carried by the request token.
func MeHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := reqctx.GetIdentityFromContext(r.Context())
	if !ok {
		response.Error(w, apperr.Unauthorized("Authentication required"))
		return
	}
	response.JSON(w, http.StatusOK, identity)
}

// IdentityOf is the token payload for user.
func IdentityOf(user models.User) token.Identity {
	return token.Identity{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		JobTitle:  user.JobTitle,
	}
}
