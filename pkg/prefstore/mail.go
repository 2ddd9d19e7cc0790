package prefstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"
)

// ErrMailSafe is returned when clearing a message protected by the safe
// flag.
var ErrMailSafe = errors.New("prefstore: message is marked safe")

// Message is one piece of offline mail. IDs are per-recipient and
// monotonically increasing, never reused. Cleared messages survive until
// the next purge; the safe flag protects a message from being cleared.
type Message struct {
	ID      uint64
	From    string
	Subject string
	Body    string
	SentAt  time.Time
	Read    bool
	Cleared bool
	Safe    bool
}

func idKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// AppendMail stores a message for a recipient and returns its assigned ID.
func (s *Store) AppendMail(recipient string, m Message) (uint64, error) {
	var id uint64
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		box, err := tx.Bucket(bucketMail).CreateBucketIfNotExists(nameKey(recipient))
		if err != nil {
			return err
		}
		id, err = box.NextSequence()
		if err != nil {
			return err
		}
		m.ID = id
		data, err := encodeMessage(&m)
		if err != nil {
			return err
		}
		return box.Put(idKey(id), data)
	})
	if err != nil {
		return 0, fmt.Errorf("prefstore: append mail for %s: %w", recipient, err)
	}
	return id, nil
}

// MailFor returns a recipient's messages in arrival order.
func (s *Store) MailFor(recipient string) ([]Message, error) {
	var out []Message
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		box := tx.Bucket(bucketMail).Bucket(nameKey(recipient))
		if box == nil {
			return nil
		}
		return box.ForEach(func(_, data []byte) error {
			m, err := decodeMessage(data)
			if err != nil {
				return err
			}
			out = append(out, *m)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("prefstore: read mail for %s: %w", recipient, err)
	}
	return out, nil
}

// UnreadMail returns how many of a recipient's messages are unread.
func (s *Store) UnreadMail(recipient string) (int, error) {
	n := 0
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		box := tx.Bucket(bucketMail).Bucket(nameKey(recipient))
		if box == nil {
			return nil
		}
		return box.ForEach(func(_, data []byte) error {
			m, err := decodeMessage(data)
			if err != nil {
				return err
			}
			if !m.Read {
				n++
			}
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("prefstore: count mail for %s: %w", recipient, err)
	}
	return n, nil
}

// updateMail rewrites one message in place through fn.
func (s *Store) updateMail(recipient string, id uint64, fn func(*Message) error) error {
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		box := tx.Bucket(bucketMail).Bucket(nameKey(recipient))
		if box == nil {
			return ErrNotFound
		}
		data := box.Get(idKey(id))
		if data == nil {
			return ErrNotFound
		}
		m, err := decodeMessage(data)
		if err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
		data, err = encodeMessage(m)
		if err != nil {
			return err
		}
		return box.Put(idKey(id), data)
	})
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrMailSafe) {
		return err
	}
	if err != nil {
		return fmt.Errorf("prefstore: update mail %d for %s: %w", id, recipient, err)
	}
	return nil
}

// MarkMailRead flags one message as read.
func (s *Store) MarkMailRead(recipient string, id uint64) error {
	return s.updateMail(recipient, id, func(m *Message) error {
		m.Read = true
		return nil
	})
}

// SetMailCleared flags or unflags one message for the next purge. A safe
// message refuses to clear.
func (s *Store) SetMailCleared(recipient string, id uint64, cleared bool) error {
	return s.updateMail(recipient, id, func(m *Message) error {
		if cleared && m.Safe {
			return ErrMailSafe
		}
		m.Cleared = cleared
		return nil
	})
}

// SetMailSafe protects or unprotects one message. Unsetting safe does not
// resurrect a prior clear.
func (s *Store) SetMailSafe(recipient string, id uint64, safe bool) error {
	return s.updateMail(recipient, id, func(m *Message) error {
		m.Safe = safe
		if safe {
			m.Cleared = false
		}
		return nil
	})
}

// PurgeMail deletes a recipient's cleared messages and reports how many
// were removed.
func (s *Store) PurgeMail(recipient string) (int, error) {
	n := 0
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		box := tx.Bucket(bucketMail).Bucket(nameKey(recipient))
		if box == nil {
			return nil
		}
		var doomed [][]byte
		err := box.ForEach(func(k, data []byte) error {
			m, err := decodeMessage(data)
			if err != nil {
				return err
			}
			if m.Cleared && !m.Safe {
				key := make([]byte, len(k))
				copy(key, k)
				doomed = append(doomed, key)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range doomed {
			if err := box.Delete(k); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prefstore: purge mail for %s: %w", recipient, err)
	}
	return n, nil
}

// DeleteMail removes one message.
func (s *Store) DeleteMail(recipient string, id uint64) error {
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		box := tx.Bucket(bucketMail).Bucket(nameKey(recipient))
		if box == nil {
			return ErrNotFound
		}
		if box.Get(idKey(id)) == nil {
			return ErrNotFound
		}
		return box.Delete(idKey(id))
	})
	if err == ErrNotFound {
		return err
	}
	if err != nil {
		return fmt.Errorf("prefstore: delete mail %d for %s: %w", id, recipient, err)
	}
	return nil
}
