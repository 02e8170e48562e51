package types

import (
	"sort"
	"strings"

	pkgerrors "github.com/partnest/sparesync/pkg/errors"
	"github.com/partnest/sparesync/pkg/validators"
)

// Address is the shipping address captured at checkout.
type Address struct {
	HouseNo    string `json:"houseNo" validate:"required"`
	Street     string `json:"street" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
}

// Normalized returns a copy with surrounding whitespace removed from every field.
func (a Address) Normalized() Address {
	return Address{
		HouseNo:    strings.TrimSpace(a.HouseNo),
		Street:     strings.TrimSpace(a.Street),
		PostalCode: strings.TrimSpace(a.PostalCode),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
	}
}

// Validate requires every field to be non-blank. The returned error carries the
// sorted list of missing json field names under "missing".
func (a Address) Validate() error {
	normalized := a.Normalized()
	err := validators.Struct(normalized)
	if err == nil {
		return nil
	}
	typed := pkgerrors.As(err)
	fields, ok := typed.Details().(map[string]string)
	if !ok {
		return err
	}
	missing := make([]string, 0, len(fields))
	for field := range fields {
		missing = append(missing, field)
	}
	sort.Strings(missing)
	return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").WithDetails(map[string]any{
		"missing": missing,
	})
}
