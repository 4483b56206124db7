package store

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/orneryd/muninn/pkg/graph"
)

// Key prefixes. Index keys embed ids separated by 0x00.
const (
	prefixEntity        = byte('e')
	prefixRelation      = byte('r')
	prefixTypeIndex     = byte('t')
	prefixOutgoingIndex = byte('o')
	prefixIncomingIndex = byte('i')
)

// BadgerStore is a persistent graph store on badger/v4.
//
// Layout:
//   - e<id>            -> JSON entity
//   - r<id>            -> JSON relation
//   - t<type>\x00<id>  -> type index
//   - o<src>\x00<rid>  -> outgoing adjacency index
//   - i<dst>\x00<rid>  -> incoming adjacency index
//
// Safe for concurrent use; badger serializes writes internally.
type BadgerStore struct {
	db *badger.DB
}

var (
	_ Store   = (*BadgerStore)(nil)
	_ Writer  = (*BadgerStore)(nil)
	_ Scanner = (*BadgerStore)(nil)
)

// BadgerOptions configures a BadgerStore.
type BadgerOptions struct {
	// DataDir is the on-disk location. Ignored when InMemory is set.
	DataDir string
	// InMemory keeps everything in RAM; data is lost on Close. Useful for
	// tests that need persistent-store semantics without disk I/O.
	InMemory bool
	// SyncWrites forces fsync after each write.
	SyncWrites bool
}

// NewBadgerStore opens (or creates) a badger-backed store.
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir).
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func entityKey(id graph.EntityID) []byte {
	return append([]byte{prefixEntity}, []byte(id)...)
}

func relationKey(id string) []byte {
	return append([]byte{prefixRelation}, []byte(id)...)
}

func indexKey(prefix byte, owner, member string) []byte {
	key := make([]byte, 0, 1+len(owner)+1+len(member))
	key = append(key, prefix)
	key = append(key, owner...)
	key = append(key, 0x00)
	key = append(key, member...)
	return key
}

func indexPrefix(prefix byte, owner string) []byte {
	key := make([]byte, 0, 1+len(owner)+1)
	key = append(key, prefix)
	key = append(key, owner...)
	key = append(key, 0x00)
	return key
}

// CreateEntity stores an entity and updates the type index.
func (b *BadgerStore) CreateEntity(_ context.Context, e *graph.Entity) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("%w: entity id must be non-empty", graph.ErrInvalidRelation)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entity %s: %w", e.ID, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(entityKey(e.ID)); err == nil {
			return fmt.Errorf("entity %s: already exists", e.ID)
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Set(entityKey(e.ID), data); err != nil {
			return err
		}
		if e.Type != "" {
			return txn.Set(indexKey(prefixTypeIndex, e.Type, string(e.ID)), nil)
		}
		return nil
	})
}

// CreateRelation stores a relation and updates both adjacency indexes.
func (b *BadgerStore) CreateRelation(_ context.Context, r *graph.Relation) error {
	if r == nil {
		return fmt.Errorf("%w: nil relation", graph.ErrInvalidRelation)
	}
	if err := r.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal relation %s: %w", r.ID, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(entityKey(r.Source)); err == badger.ErrKeyNotFound {
			return fmt.Errorf("relation %s: source %s: %w", r.ID, r.Source, graph.ErrNotFound)
		} else if err != nil {
			return err
		}
		if _, err := txn.Get(entityKey(r.Target)); err == badger.ErrKeyNotFound {
			return fmt.Errorf("relation %s: target %s: %w", r.ID, r.Target, graph.ErrNotFound)
		} else if err != nil {
			return err
		}
		if err := txn.Set(relationKey(r.ID), data); err != nil {
			return err
		}
		if err := txn.Set(indexKey(prefixOutgoingIndex, string(r.Source), r.ID), nil); err != nil {
			return err
		}
		return txn.Set(indexKey(prefixIncomingIndex, string(r.Target), r.ID), nil)
	})
}

// GetEntity returns the entity or an error wrapping graph.ErrNotFound.
func (b *BadgerStore) GetEntity(_ context.Context, id graph.EntityID) (*graph.Entity, error) {
	var e graph.Entity
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entityKey(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("entity %s: %w", id, graph.ErrNotFound)
		}
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &e)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// HasEntity reports whether the entity exists without decoding it.
func (b *BadgerStore) HasEntity(_ context.Context, id graph.EntityID) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(entityKey(id))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetRelations enumerates relations touching the entity via the adjacency
// indexes. For Both, outgoing relations come first.
func (b *BadgerStore) GetRelations(_ context.Context, id graph.EntityID, dir graph.Direction) ([]*graph.Relation, error) {
	var rels []*graph.Relation
	err := b.db.View(func(txn *badger.Txn) error {
		if dir == graph.Outgoing || dir == graph.Both {
			if err := b.collectAdjacent(txn, indexPrefix(prefixOutgoingIndex, string(id)), &rels); err != nil {
				return err
			}
		}
		if dir == graph.Incoming || dir == graph.Both {
			if err := b.collectAdjacent(txn, indexPrefix(prefixIncomingIndex, string(id)), &rels); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rels, nil
}

func (b *BadgerStore) collectAdjacent(txn *badger.Txn, prefix []byte, out *[]*graph.Relation) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		relID := string(it.Item().Key()[len(prefix):])
		item, err := txn.Get(relationKey(relID))
		if err == badger.ErrKeyNotFound {
			continue // dangling index entry
		}
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var r graph.Relation
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		*out = append(*out, &r)
	}
	return nil
}

// EntitiesByType enumerates all entities of the given type via the type index.
func (b *BadgerStore) EntitiesByType(_ context.Context, entityType string) ([]*graph.Entity, error) {
	var entities []*graph.Entity
	prefix := indexPrefix(prefixTypeIndex, entityType)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := graph.EntityID(it.Item().Key()[len(prefix):])
			item, err := txn.Get(entityKey(id))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var e graph.Entity
			if err := json.Unmarshal(data, &e); err != nil {
				return err
			}
			entities = append(entities, &e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// ScanEntities decodes every stored entity. Used by vector search; a full
// scan, so callers should expect it to be the slowest store operation.
func (b *BadgerStore) ScanEntities(_ context.Context) ([]*graph.Entity, error) {
	var entities []*graph.Entity
	prefix := []byte{prefixEntity}
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var e graph.Entity
			if err := json.Unmarshal(data, &e); err != nil {
				return err
			}
			entities = append(entities, &e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// Close releases the underlying badger database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}
