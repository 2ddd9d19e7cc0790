package prefstore

import (
	"bytes"
	"encoding/gob"
)

// encodeAccount serializes an Account to bytes using gob.
func encodeAccount(a *Account) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeAccount deserializes bytes back into an Account.
func decodeAccount(data []byte) (*Account, error) {
	var a Account
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// encodePrefs serializes Prefs to bytes using gob.
func encodePrefs(p *Prefs) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodePrefs deserializes bytes back into Prefs.
func decodePrefs(data []byte) (*Prefs, error) {
	var p Prefs
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// encodeMessage serializes a mail Message to bytes using gob.
func encodeMessage(m *Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeMessage deserializes bytes back into a mail Message.
func decodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}
