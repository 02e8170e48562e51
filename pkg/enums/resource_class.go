package enums

import "fmt"

// ResourceClass names a family of live-updated state pushed to clients.
type ResourceClass string

const (
	ResourceClassCatalog      ResourceClass = "catalog"
	ResourceClassWallet       ResourceClass = "wallet"
	ResourceClassConversation ResourceClass = "conversation"
)

var validResourceClasses = []ResourceClass{
	ResourceClassCatalog,
	ResourceClassWallet,
	ResourceClassConversation,
}

// String implements fmt.Stringer.
func (r ResourceClass) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ResourceClass.
func (r ResourceClass) IsValid() bool {
	for _, candidate := range validResourceClasses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseResourceClass converts raw input into a ResourceClass.
func ParseResourceClass(value string) (ResourceClass, error) {
	for _, candidate := range validResourceClasses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid resource class %q", value)
}
