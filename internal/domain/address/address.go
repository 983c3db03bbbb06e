// Package address implements the per-user address book used to prefill
// checkout.
package address

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// ErrNotFound is returned when the address does not exist or belongs to
// another user.
var ErrNotFound = errors.New("address not found")

// Address is a saved delivery address.
type Address struct {
	ID       int64
	UserID   string
	FullName string `validate:"notblank,max=100"`
	Phone    string `validate:"notblank,max=20"`
	Street   string `validate:"notblank,max=255"`
	Ward     string `validate:"notblank,max=100"`
	District string `validate:"notblank,max=100"`
	Province string `validate:"notblank,max=100"`
	Default  bool
}

// Format joins the non-blank parts of a, most specific first.
func (a Address) Format() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.Ward, a.District, a.Province} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// InvalidError reports the first field that failed validation.
type InvalidError struct {
	Field string
	Tag   string
}

func (e *InvalidError) Error() string {
	return "invalid address " + e.Field + ": " + e.Tag
}

// Repository stores addresses. Every method is scoped to userID.
type Repository interface {
	Create(ctx context.Context, a *Address) error
	Update(ctx context.Context, a *Address) error
	Delete(ctx context.Context, userID string, id int64) error
	Get(ctx context.Context, userID string, id int64) (*Address, error)
	List(ctx context.Context, userID string) ([]Address, error)
}

// Book validates addresses before handing them to a Repository.
type Book struct {
	repo     Repository
	validate *validator.Validate
}

// NewBook creates a Book.
func NewBook(repo Repository) *Book {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return &Book{repo: repo, validate: v}
}

func (b *Book) check(a *Address) error {
	if err := b.validate.Struct(a); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			return &InvalidError{Field: fields[0].Field(), Tag: fields[0].Tag()}
		}
		return errors.Wrap(err, "validate address")
	}
	return nil
}

// Add saves a new address for a.UserID.
func (b *Book) Add(ctx context.Context, a *Address) error {
	if err := b.check(a); err != nil {
		return err
	}
	return b.repo.Create(ctx, a)
}

// Edit replaces an existing address.
func (b *Book) Edit(ctx context.Context, a *Address) error {
	if err := b.check(a); err != nil {
		return err
	}
	return b.repo.Update(ctx, a)
}

func (b *Book) Remove(ctx context.Context, userID string, id int64) error {
	return b.repo.Delete(ctx, userID, id)
}

func (b *Book) Get(ctx context.Context, userID string, id int64) (*Address, error) {
	return b.repo.Get(ctx, userID, id)
}

func (b *Book) List(ctx context.Context, userID string) ([]Address, error) {
	return b.repo.List(ctx, userID)
}
