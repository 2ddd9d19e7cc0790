// Package prefstore persists accounts, per-player chat preferences, and
// offline mail in a single bbolt file. This is the state a chat session
// does not own: login identity, nickname, ignore and favorite lists, and
// unread messages all survive restarts here.
package prefstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	bbolt "go.etcd.io/bbolt"
)

var (
	bucketAccounts = []byte("accounts")
	bucketPrefs    = []byte("prefs")
	bucketMail     = []byte("mail")
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("prefstore: not found")

// Account is one login identity. Name keeps the spelling chosen at
// creation; lookups are case-insensitive.
type Account struct {
	Name         string
	PasswordHash []byte // bcrypt
	Level        int
	Caps         []string
	CreatedAt    time.Time
	LastSeen     time.Time
}

// HasCap reports whether the account carries an explicit capability.
func (a *Account) HasCap(capability string) bool {
	for _, c := range a.Caps {
		if strings.EqualFold(c, capability) {
			return true
		}
	}
	return false
}

// Prefs is a player's persisted chat preferences.
type Prefs struct {
	Nickname  string
	Ignored   []string // account names, lowercase
	Favorites []string // channel names, lowercase
}

// Store wraps a bbolt database holding accounts, preferences, and mail.
type Store struct {
	bolt *bbolt.DB
}

// Open opens or creates the store file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("prefstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketAccounts, bucketPrefs, bucketMail} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prefstore: create buckets: %w", err)
	}

	return &Store{bolt: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

func nameKey(name string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(name)))
}

// PutAccount persists an account (write-through).
func (s *Store) PutAccount(a *Account) error {
	data, err := encodeAccount(a)
	if err != nil {
		return fmt.Errorf("prefstore: encode account %s: %w", a.Name, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAccounts).Put(nameKey(a.Name), data)
	})
}

// GetAccount fetches an account by name, case-insensitive.
func (s *Store) GetAccount(name string) (*Account, error) {
	var a *Account
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketAccounts).Get(nameKey(name))
		if data == nil {
			return ErrNotFound
		}
		var err error
		a, err = decodeAccount(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// AccountExists reports whether an account with the name exists.
func (s *Store) AccountExists(name string) bool {
	exists := false
	s.bolt.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(bucketAccounts).Get(nameKey(name)) != nil
		return nil
	})
	return exists
}

// AccountCount returns the number of stored accounts.
func (s *Store) AccountCount() int {
	n := 0
	s.bolt.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketAccounts).Stats().KeyN
		return nil
	})
	return n
}

// TouchLastSeen updates an account's last-seen timestamp.
func (s *Store) TouchLastSeen(name string, when time.Time) error {
	a, err := s.GetAccount(name)
	if err != nil {
		return err
	}
	a.LastSeen = when
	return s.PutAccount(a)
}

// PutPrefs persists a player's preferences.
func (s *Store) PutPrefs(name string, p *Prefs) error {
	data, err := encodePrefs(p)
	if err != nil {
		return fmt.Errorf("prefstore: encode prefs %s: %w", name, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPrefs).Put(nameKey(name), data)
	})
}

// GetPrefs fetches a player's preferences. Players with nothing stored
// get empty preferences, not an error.
func (s *Store) GetPrefs(name string) (*Prefs, error) {
	p := &Prefs{}
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPrefs).Get(nameKey(name))
		if data == nil {
			return nil
		}
		var err error
		p, err = decodePrefs(data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("prefstore: decode prefs %s: %w", name, err)
	}
	return p, nil
}
