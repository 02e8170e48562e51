package controllers

import (
	"net/http"

	"github.com/partnest/sparesync/api/middleware"
	"github.com/partnest/sparesync/api/responses"
	"github.com/partnest/sparesync/internal/backend"
	"github.com/partnest/sparesync/pkg/enums"
	pkgerrors "github.com/partnest/sparesync/pkg/errors"
	"github.com/partnest/sparesync/pkg/logger"
	"github.com/partnest/sparesync/pkg/types"
)

// ProductList returns the catalog as the caller's role may see it.
func ProductList(svc backend.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		products, err := svc.Products(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role := enums.MemberRole(middleware.RoleFromContext(r.Context()))
		products = backend.CatalogFor(products, userID, role)
		if products == nil {
			products = []types.Product{}
		}
		responses.WriteSuccess(w, products)
	}
}

// WalletFetch returns the caller's wallet balance.
func WalletFetch(svc backend.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wallet, err := svc.Wallet(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wallet)
	}
}
