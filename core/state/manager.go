package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"pairamm/storage"
)

// ErrConflict is returned by Commit when a value read by the journal was
// changed by another commit in the meantime. The caller resubmits.
var ErrConflict = errors.New("state: concurrent modification")

// ErrClosed is returned when a committed or discarded journal is reused.
var ErrClosed = errors.New("state: journal closed")

// Store owns the database and serialises commits. Every operation works in its
// own Manager journal obtained from Begin.
type Store struct {
	db       storage.Database
	mu       sync.RWMutex
	versions map[string]uint64
}

// NewStore wraps db.
func NewStore(db storage.Database) *Store {
	return &Store{db: db, versions: make(map[string]uint64)}
}

// Begin opens a write journal over the committed state.
func (s *Store) Begin() *Manager {
	return &Manager{
		store:  s,
		reads:  make(map[string]uint64),
		writes: make(map[string][]byte),
	}
}

func (s *Store) read(key []byte) ([]byte, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	version := s.versions[string(key)]
	data, err := s.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, version, nil
	}
	if err != nil {
		return nil, version, err
	}
	return data, version, nil
}

// Manager is a copy-then-commit journal over the store. Reads fall through to
// the database and are remembered; writes stay in memory until Commit applies
// them as one storage batch. Discard drops them, which rolls back every token
// movement and pool mutation of a failed operation.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	store  *Store
	reads  map[string]uint64
	writes map[string][]byte
	closed bool
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) get(hashed []byte) ([]byte, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if data, ok := m.writes[string(hashed)]; ok {
		return data, nil
	}
	data, version, err := m.store.read(hashed)
	if err != nil {
		return nil, err
	}
	if _, seen := m.reads[string(hashed)]; !seen {
		m.reads[string(hashed)] = version
	}
	return data, nil
}

func (m *Manager) put(hashed []byte, encoded []byte) error {
	if m.closed {
		return ErrClosed
	}
	m.writes[string(hashed)] = encoded
	return nil
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches the database.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.put(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// out. The boolean reports whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVAppendString adds value to the sorted string set stored under key.
func (m *Manager) KVAppendString(key []byte, value string) error {
	var list []string
	if _, err := m.KVGet(key, &list); err != nil {
		return err
	}
	idx := sort.SearchStrings(list, value)
	if idx < len(list) && list[idx] == value {
		return nil
	}
	list = append(list, "")
	copy(list[idx+1:], list[idx:])
	list[idx] = value
	return m.KVPut(key, list)
}

// Commit validates that nothing this journal read has changed since and then
// applies every write atomically.
func (m *Manager) Commit() error {
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	if len(m.writes) == 0 {
		return nil
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, seen := range m.reads {
		if s.versions[key] != seen {
			return ErrConflict
		}
	}
	batch := s.db.NewBatch()
	for key, value := range m.writes {
		batch.Put([]byte(key), value)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	for key := range m.writes {
		s.versions[key]++
	}
	return nil
}

// Discard drops the journal without touching the store.
func (m *Manager) Discard() {
	m.closed = true
	m.writes = nil
	m.reads = nil
}
