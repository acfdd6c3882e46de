package domain

import "fmt"

// Resource is a rate-limited action kind.
type Resource string

// Resource kinds. Adding a kind requires a matching quota limit.
const (
	ResourceText  Resource = "text"
	ResourceImage Resource = "image"
)

// Resources lists every known kind in display order.
func Resources() []Resource {
	return []Resource{ResourceText, ResourceImage}
}

// ParseResource validates a resource name.
func ParseResource(s string) (Resource, error) {
	switch r := Resource(s); r {
	case ResourceText, ResourceImage:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownResource, s)
	}
}

// Valid reports whether r belongs to the enumeration.
func (r Resource) Valid() bool {
	return r == ResourceText || r == ResourceImage
}

func (r Resource) String() string { return string(r) }
