package keys

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// minKeySize matches the output size of SHA-256 used for HS256 signatures.
var minKeySize = 32

type Key []byte

func NewKey() (*Key, error) {
	b := make([]byte, minKeySize)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	key := Key(b)
	return &key, nil
}

// ParseKey accepts raw key bytes, or a base64 url encoded key prefixed with
// "base64:" as printed by String.
func ParseKey(raw []byte) (*Key, error) {
	if encoded, ok := bytes.CutPrefix(raw, []byte("base64:")); ok {
		decoded, err := base64.URLEncoding.DecodeString(string(encoded))
		if err != nil {
			return nil, fmt.Errorf("decode key: %w", err)
		}
		raw = decoded
	}
	if len(raw) < minKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, need at least %d", len(raw), minKeySize)
	}
	key := Key(raw)
	return &key, nil
}

func (k Key) String() string {
	return "base64:" + base64.URLEncoding.EncodeToString(k)
}

// Bytes returns the key as a plain byte slice, the form HMAC signers expect.
func (k Key) Bytes() []byte {
	return []byte(k)
}
