package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/jacentio/lakitu/internal/keys"
)

// BadgerOptions configures the badger-backed store.
type BadgerOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string

	// Logger for badger. If nil, logging is disabled.
	Logger badger.Logger
}

// BadgerStore implements Store on an embedded badger database.
// Items live under the key "item\x00<owner>\x00<item id>" as JSON.
type BadgerStore struct {
	db     *badger.DB
	config Config
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) a badger database.
func NewBadgerStore(opts BadgerOptions, config Config) (*BadgerStore, error) {
	config.validate()

	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	return &BadgerStore{db: db, config: config}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// List iterates the owner's key prefix.
func (s *BadgerStore) List(ctx context.Context, owner string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := checkContext(ctx, "list"); err != nil {
		return nil, err
	}
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	prefix := keys.OwnerPrefix(owner)
	items := []Item{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, itemID, err := keys.SplitItemKey(it.Item().KeyCopy(nil))
			if err != nil {
				return err
			}
			var item Item
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			}); err != nil {
				return fmt.Errorf("decode item %s: %w", itemID, err)
			}
			item.OwnerID = owner
			item.ItemID = itemID
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, classifyBadger("list", err)
	}
	sortItems(items)

	return items, nil
}

// Get reads a single item.
func (s *BadgerStore) Get(ctx context.Context, owner, itemID string) (Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := checkContext(ctx, "get"); err != nil {
		return Item{}, err
	}
	if err := validateKey(owner, itemID); err != nil {
		return Item{}, err
	}

	var item Item
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		item, err = getItem(txn, owner, itemID)
		return err
	})
	if err != nil {
		return Item{}, classifyBadger("get", err)
	}
	return item, nil
}

// Create writes a fresh item, failing if the generated key is taken.
func (s *BadgerStore) Create(ctx context.Context, owner, value string) (Item, error) {
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

	now := s.config.nowMillis()
	item := Item{
		OwnerID:   owner,
		ItemID:    keys.NewItemID(),
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		key := keys.ItemKey(owner, item.ItemID)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("create item: generated id %q already exists", item.ItemID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return putItem(txn, item)
	})
	if err != nil {
		return Item{}, classifyBadger("create", err)
	}
	return item, nil
}

// Update rewrites the value of an existing item.
func (s *BadgerStore) Update(ctx context.Context, owner, itemID, value string) (Item, error) {
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

	var item Item
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		item, err = getItem(txn, owner, itemID)
		if err != nil {
			return err
		}
		item.Value = value
		item.UpdatedAt = max(s.config.nowMillis(), item.CreatedAt)
		return putItem(txn, item)
	})
	if err != nil {
		return Item{}, classifyBadger("update", err)
	}
	return item, nil
}

// Delete removes an existing item.
func (s *BadgerStore) Delete(ctx context.Context, owner, itemID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := checkContext(ctx, "delete"); err != nil {
		return err
	}
	if err := validateKey(owner, itemID); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		key := keys.ItemKey(owner, itemID)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return classifyBadger("delete", err)
	}
	return nil
}

func getItem(txn *badger.Txn, owner, itemID string) (Item, error) {
	entry, err := txn.Get(keys.ItemKey(owner, itemID))
	if err != nil {
		return Item{}, err
	}
	var item Item
	if err := entry.Value(func(val []byte) error {
		return json.Unmarshal(val, &item)
	}); err != nil {
		return Item{}, fmt.Errorf("decode item %s: %w", itemID, err)
	}
	item.OwnerID = owner
	item.ItemID = itemID
	return item, nil
}

func putItem(txn *badger.Txn, item Item) error {
	val, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item %s: %w", item.ItemID, err)
	}
	return txn.Set(keys.ItemKey(item.OwnerID, item.ItemID), val)
}

func classifyBadger(op string, err error) error {
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrNotFound
	case errors.Is(err, badger.ErrConflict),
		errors.Is(err, badger.ErrDBClosed),
		errors.Is(err, badger.ErrBlockedWrites),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return unavailable(op, err)
	default:
		return fmt.Errorf("%s item: %w", op, err)
	}
}
