// Package recent tracks the products a user viewed most recently.
package recent

import "context"

// Limit is the number of products remembered per user.
const Limit = 20

// Tracker records product views.
type Tracker interface {
	// Touch moves productID to the front of the user's list, dropping the
	// oldest entry past Limit.
	Touch(ctx context.Context, userID, productID string) error
	// List returns product IDs, most recent first.
	List(ctx context.Context, userID string) ([]string, error)
}

// Nop is a Tracker that remembers nothing.
type Nop struct{}

func (Nop) Touch(context.Context, string, string) error { return nil }
func (Nop) List(context.Context, string) ([]string, error) { return nil, nil }

// Push returns list with id moved to the front, capped at Limit.
func Push(list []string, id string) []string {
	out := make([]string, 0, min(len(list)+1, Limit))
	out = append(out, id)
	for _, v := range list {
		if len(out) == Limit {
			break
		}
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
