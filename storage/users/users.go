// Package users stores the provider's user records: for every canonical
// address, the user's login public keys with the parameters needed to
// derive the matching secret keys.
package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/3nsoft/mailerid-go/protocol"
	"github.com/3nsoft/mailerid-go/storage/kv"
)

var (
	// ErrUserNotFound is returned for an unknown user or login key.
	ErrUserNotFound = errors.New("[users] User not found")
	// ErrUserExists is returned when adding a user that is already known.
	ErrUserExists = fmt.Errorf("[users] User already exists: %w", kv.ErrExists)
	// ErrNoLoginKeys is returned when adding a record without login keys.
	ErrNoLoginKeys = errors.New("[users] Record has no login keys")
)

var keyPrefix = []byte("user/")

// A LoginKey is a login public key. KDParams is kept opaque; only the
// client interprets it.
type LoginKey struct {
	PKey     *protocol.JSONKey `json:"pkey"`
	KDParams json.RawMessage   `json:"kdParams,omitempty"`
}

// A Record is a user's entry. The first login key is the default one.
type Record struct {
	ID        string      `json:"id"`
	LoginKeys []*LoginKey `json:"loginKeys"`
}

// A Store keeps records in a kv.DB.
type Store struct {
	mu sync.Mutex
	db kv.DB
}

// New returns a Store over db. The caller keeps ownership of db.
func New(db kv.DB) *Store {
	return &Store{db: db}
}

func recordKey(userID string) []byte {
	return append(append([]byte(nil), keyPrefix...), userID...)
}

// Add stores a new record under the canonical form of rec.ID, after
// checking every login key.
func (st *Store) Add(rec *Record) error {
	if rec == nil || len(rec.LoginKeys) == 0 {
		return ErrNoLoginKeys
	}
	for _, lk := range rec.LoginKeys {
		if _, err := protocol.LoginPublicKeyFromJSON(lk.PKey); err != nil {
			return fmt.Errorf("login key of %s: %w", rec.ID, err)
		}
	}
	stored := *rec
	stored.ID = protocol.CanonicalAddress(rec.ID)
	if stored.ID == "" {
		return ErrUserNotFound
	}
	buf, err := json.Marshal(&stored)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	key := recordKey(stored.ID)
	exists, err := st.db.Has(key)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserExists
	}
	return st.db.Put(key, buf)
}

// Get returns the record of a user.
func (st *Store) Get(userID string) (*Record, error) {
	buf, err := st.db.Get(recordKey(protocol.CanonicalAddress(userID)))
	switch {
	case err == st.db.ErrNotFound():
		return nil, ErrUserNotFound
	case err != nil:
		return nil, err
	}
	rec := new(Record)
	if err := json.Unmarshal(buf, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// LookupLoginKey returns the user's login key with the given key id,
// or the default key when kid is empty.
func (st *Store) LookupLoginKey(userID, kid string) (*LoginKey, error) {
	rec, err := st.Get(userID)
	if err != nil {
		return nil, err
	}
	if len(rec.LoginKeys) == 0 {
		return nil, ErrUserNotFound
	}
	if kid == "" {
		return rec.LoginKeys[0], nil
	}
	for _, lk := range rec.LoginKeys {
		if lk.PKey != nil && lk.PKey.Kid == kid {
			return lk, nil
		}
	}
	return nil, ErrUserNotFound
}

// List returns the canonical ids of all users, in order.
func (st *Store) List() ([]string, error) {
	iter := st.db.NewIterator(kv.BytesPrefix(keyPrefix))
	defer iter.Release()
	var ids []string
	for iter.Next() {
		ids = append(ids, string(iter.Key()[len(keyPrefix):]))
	}
	return ids, iter.Error()
}
