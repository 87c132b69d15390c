package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jacentio/lakitu/internal/keys"
)

// MemoryStore implements Store with in-process maps.
// It is intended for tests and local development; nothing is durable.
type MemoryStore struct {
	mu     sync.RWMutex
	config Config
	owners map[string]map[string]Item
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(config Config) *MemoryStore {
	config.validate()
	return &MemoryStore{
		config: config,
		owners: make(map[string]map[string]Item),
	}
}

// List returns all items of owner.
func (s *MemoryStore) List(ctx context.Context, owner string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := checkContext(ctx, "list"); err != nil {
		return nil, err
	}
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]Item, 0, len(s.owners[owner]))
	for _, item := range s.owners[owner] {
		items = append(items, item)
	}
	sortItems(items)

	return items, nil
}

// Get returns a single item of owner.
func (s *MemoryStore) Get(ctx context.Context, owner, itemID string) (Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := checkContext(ctx, "get"); err != nil {
		return Item{}, err
	}
	if err := validateKey(owner, itemID); err != nil {
		return Item{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.owners[owner][itemID]
	if !ok {
		return Item{}, ErrNotFound
	}
	return item, nil
}

// Create stores a new item for owner.
func (s *MemoryStore) Create(ctx context.Context, owner, value string) (Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := checkContext(ctx, "create"); err != nil {
		return Item{}, err
	}
	if err := validateOwner(owner); err != nil {
		return Item{}, err
	}
	if err := ValidateValue(value); err != nil {
		return Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.owners[owner]
	if !ok {
		items = make(map[string]Item)
		s.owners[owner] = items
	}

	id := keys.NewItemID()
	if _, exists := items[id]; exists {
		return Item{}, fmt.Errorf("create item: generated id %q already exists", id)
	}

	now := s.config.nowMillis()
	item := Item{
		OwnerID:   owner,
		ItemID:    id,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	items[id] = item

	return item, nil
}

// Update replaces the value of an existing item.
func (s *MemoryStore) Update(ctx context.Context, owner, itemID, value string) (Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := checkContext(ctx, "update"); err != nil {
		return Item{}, err
	}
	if err := validateKey(owner, itemID); err != nil {
		return Item{}, err
	}
	if err := ValidateValue(value); err != nil {
		return Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.owners[owner][itemID]
	if !ok {
		return Item{}, ErrNotFound
	}

	item.Value = value
	item.UpdatedAt = max(s.config.nowMillis(), item.CreatedAt)
	s.owners[owner][itemID] = item

	return item, nil
}

// Delete removes an existing item.
func (s *MemoryStore) Delete(ctx context.Context, owner, itemID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := checkContext(ctx, "delete"); err != nil {
		return err
	}
	if err := validateKey(owner, itemID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.owners[owner][itemID]; !ok {
		return ErrNotFound
	}
	delete(s.owners[owner], itemID)
	if len(s.owners[owner]) == 0 {
		delete(s.owners, owner)
	}

	return nil
}

// checkContext fails fast when ctx is already done.
func checkContext(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return unavailable(op, ctx.Err())
	default:
		return nil
	}
}
