package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCheckoutUnavailable is returned when no pending record could be
// written. No payment was attempted and the cart is untouched.
var ErrCheckoutUnavailable = errors.New("could not start checkout")

// ValidationError maps request fields to what is wrong with them.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", k, e.Fields[k]))
	}
	return "invalid checkout: " + strings.Join(parts, "; ")
}
