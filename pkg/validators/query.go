package validators

import (
	"net/http"
	"strings"

	"github.com/partnest/sparesync/pkg/enums"
	pkgerrors "github.com/partnest/sparesync/pkg/errors"
)

// ParseStatusFilter reads the optional ?status= filter used by order listings.
func ParseStatusFilter(r *http.Request) (*enums.ShipmentStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParseShipmentStatus(strings.ToLower(raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").WithDetails(map[string]any{"field": "status"})
	}
	return &status, nil
}
