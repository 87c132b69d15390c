// Package keys provides item id generation and key encoding for item tables.
package keys

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// separator delimits key segments. It cannot appear in a Cognito subject or a UUID.
const separator = "\x00"

// itemSpace namespaces item records inside a shared badger database.
const itemSpace = "item"

// NewItemID returns a new unique, time-ordered item id (UUIDv7).
// Falls back to a random UUIDv4 if the v7 generator fails.
func NewItemID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// OwnerPrefix returns the key prefix under which all items of owner are stored.
func OwnerPrefix(owner string) []byte {
	return []byte(itemSpace + separator + owner + separator)
}

// ItemKey returns the badger key of a single item.
func ItemKey(owner, itemID string) []byte {
	return append(OwnerPrefix(owner), itemID...)
}

// SplitItemKey reverses ItemKey.
func SplitItemKey(key []byte) (owner, itemID string, err error) {
	parts := strings.SplitN(string(key), separator, 3)
	if len(parts) != 3 || parts[0] != itemSpace || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("keys: malformed item key %q", key)
	}
	return parts[1], parts[2], nil
}
