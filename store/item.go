package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
)

// MaxValueLength is the largest value, in bytes, accepted by Create and Update.
const MaxValueLength = 4096

// Item is a single owner-scoped text record.
//
// OwnerID is never serialized; it is implied by the authenticated caller.
type Item struct {
	OwnerID   string `json:"-"`
	ItemID    string `json:"item_id"`
	Value     string `json:"value"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Store is the owner-partitioned item access layer.
//
// Every method takes the owner; there is no way to address an item by id alone.
type Store interface {
	// List returns all items of owner ordered by CreatedAt, then ItemID.
	List(ctx context.Context, owner string) ([]Item, error)

	// Get returns a single item or ErrNotFound.
	Get(ctx context.Context, owner, itemID string) (Item, error)

	// Create stores a new item with a generated id.
	Create(ctx context.Context, owner, value string) (Item, error)

	// Update replaces the value of an existing item and refreshes UpdatedAt.
	Update(ctx context.Context, owner, itemID, value string) (Item, error)

	// Delete removes an existing item. Deleting a missing item is ErrNotFound.
	Delete(ctx context.Context, owner, itemID string) error
}

func validateOwner(owner string) error {
	if owner == "" {
		return &ValidationError{Field: "owner", Message: "owner must not be empty"}
	}
	if strings.ContainsRune(owner, 0) {
		return &ValidationError{Field: "owner", Message: "owner must not contain NUL"}
	}
	return nil
}

func validateKey(owner, itemID string) error {
	if err := validateOwner(owner); err != nil {
		return err
	}
	if itemID == "" {
		return &ValidationError{Field: "item_id", Message: "item id must not be empty"}
	}
	if strings.ContainsRune(itemID, 0) {
		return &ValidationError{Field: "item_id", Message: "item id must not contain NUL"}
	}
	return nil
}

// ValidateValue checks a user supplied value.
// The value is stored as given; trimming only decides emptiness.
func ValidateValue(value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: "value", Message: "value must not be empty"}
	}
	if len(value) > MaxValueLength {
		return &ValidationError{Field: "value", Message: "value is too long"}
	}
	return nil
}

// sortItems orders items by creation time with the id as tie breaker.
func sortItems(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		if c := cmp.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ItemID, b.ItemID)
	})
}
