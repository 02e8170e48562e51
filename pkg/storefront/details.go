package storefront

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/partnest/sparesync/pkg/errors"
)

// DetailProductIDs is the details key listing the products behind a stock conflict.
const DetailProductIDs = "productIds"

// StockConflictDetails builds the details payload for a stock conflict.
func StockConflictDetails(ids []uuid.UUID) map[string]any {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return map[string]any{DetailProductIDs: out}
}

// AffectedProducts extracts product ids from a CONFLICT or STOCK_CONFLICT
// error, whether built locally or decoded from a response body.
func AffectedProducts(err error) []uuid.UUID {
	typed := pkgerrors.As(err)
	if typed == nil {
		return nil
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return nil
	}
	var raw []string
	switch v := details[DetailProductIDs].(type) {
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			raw = append(raw, fmt.Sprint(item))
		}
	case []uuid.UUID:
		return append([]uuid.UUID(nil), v...)
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
