// Package models holds the gorm records of the development backend.
package models

// All lists every record in dependency order. The migration tests check the
// goose schema against it.
func All() []any {
	return []any{&Product{}, &CartItem{}, &Order{}, &OrderLineItem{}, &Wallet{}}
}
