package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/partnest/sparesync/api/responses"
	pkgAuth "github.com/partnest/sparesync/pkg/auth"
	"github.com/partnest/sparesync/pkg/config"
	"github.com/partnest/sparesync/pkg/enums"
	pkgerrors "github.com/partnest/sparesync/pkg/errors"
	"github.com/partnest/sparesync/pkg/logger"
	"github.com/partnest/sparesync/pkg/validators"
)

type devTokenRequest struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role" validate:"required"`
}

type devTokenResponse struct {
	AccessToken string    `json:"accessToken"`
	UserID      uuid.UUID `json:"userId"`
	Role        string    `json:"role"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// DevToken mints an access token for local testing. Only mounted outside prod.
func DevToken(cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload devTokenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := enums.ParseMemberRole(payload.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role").WithDetails(map[string]any{"field": "role"}))
			return
		}
		if payload.UserID == uuid.Nil {
			payload.UserID = uuid.New()
		}
		now := time.Now()
		token, err := pkgAuth.MintAccessToken(cfg, now, pkgAuth.AccessTokenPayload{UserID: payload.UserID, Role: role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, devTokenResponse{
			AccessToken: token,
			UserID:      payload.UserID,
			Role:        string(role),
			ExpiresAt:   now.Add(cfg.SessionTTL()),
		})
	}
}
