package session

import (
	"time"

	"go.etcd.io/bbolt"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/logging"
)

// TokenStore persists the wallet session token across restarts
type TokenStore interface {
	Read() (string, error)
	Save(token string) error
	Delete() error
}

const (
	tokenBucket = "wallet_session"
	tokenKey    = "token"
)

// BoltTokenStore is a bbolt-backed TokenStore
type BoltTokenStore struct {
	db *bbolt.DB
}

// OpenTokenStore opens (or creates) the token database at the given path.
func OpenTokenStore(path string) (*BoltTokenStore, error) {
	db, err := bbolt.Open(path+".db", 0600, &bbolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		logging.Errorf("Failed to open token store: %v", err)
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(tokenBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltTokenStore{db: db}, nil
}

// Read returns the stored token, empty when none is stored.
func (s *BoltTokenStore) Read() (string, error) {
	var token string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if value := tx.Bucket([]byte(tokenBucket)).Get([]byte(tokenKey)); value != nil {
			token = string(value)
		}
		return nil
	})
	return token, err
}

// Save stores the token.
func (s *BoltTokenStore) Save(token string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(tokenBucket)).Put([]byte(tokenKey), []byte(token))
	})
}

// Delete removes the stored token.
func (s *BoltTokenStore) Delete() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(tokenBucket)).Delete([]byte(tokenKey))
	})
}

// Close closes the underlying database.
func (s *BoltTokenStore) Close() error {
	return s.db.Close()
}
