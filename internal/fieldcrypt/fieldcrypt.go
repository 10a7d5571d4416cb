// Package fieldcrypt arbitrates between the two encryption regimes a stored
// field value can live under: server-side AES-GCM envelopes and
// client-supplied opaque ciphertext. The server can decrypt the former; it
// must never touch the latter.
package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Encoding is the detected storage format of a field value.
type Encoding int

const (
	// Plaintext is a legacy or freshly submitted unencrypted value.
	Plaintext Encoding = iota
	// ServerEncrypted is an AES-GCM envelope sealed with the server key.
	ServerEncrypted
	// ClientOpaque is ciphertext produced by the client; the server stores
	// and returns it byte-for-byte and never holds the key.
	ClientOpaque
)

// String returns the encoding name.
func (e Encoding) String() string {
	switch e {
	case ServerEncrypted:
		return "server"
	case ClientOpaque:
		return "client"
	default:
		return "plaintext"
	}
}

const (
	// ServerMarker prefixes every envelope sealed with the server key.
	ServerMarker = "senc:v1:"
	// ClientMarker prefixes ciphertext encrypted on the client. Clients own
	// this format; the server only recognizes the prefix.
	ClientMarker = "zk:v1:"
)

// ErrNotEncrypted is returned when a decrypt is attempted on a value that
// does not carry the server envelope marker.
var ErrNotEncrypted = errors.New("fieldcrypt: value is not a server envelope")

// ErrOpaqueValue is returned when a decrypt is attempted on client-opaque
// ciphertext, which the server has no key for.
var ErrOpaqueValue = errors.New("fieldcrypt: value is client-opaque ciphertext")

// Detect classifies a raw field value by its marker prefix.
func Detect(value string) Encoding {
	switch {
	case strings.HasPrefix(value, ClientMarker):
		return ClientOpaque
	case strings.HasPrefix(value, ServerMarker):
		return ServerEncrypted
	default:
		return Plaintext
	}
}

// Cipher seals and opens server-side field envelopes.
type Cipher struct {
	aead cipher.AEAD
}

// New derives a 256-bit AES key from the given passphrase and returns a
// Cipher ready for use.
func New(passphrase string) (*Cipher, error) {
	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("fieldcrypt: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("fieldcrypt: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// PrepareForWrite converts an incoming field value into its stored
// representation:
//   - client-opaque ciphertext is stored unchanged,
//   - an existing server envelope is stored unchanged,
//   - anything else is treated as plaintext and sealed into a server
//     envelope.
func (c *Cipher) PrepareForWrite(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	switch Detect(value) {
	case ClientOpaque, ServerEncrypted:
		return value, nil
	default:
		return c.seal(value)
	}
}

// PrepareForRead converts a stored representation into what the API returns:
//   - client-opaque ciphertext is returned unchanged,
//   - a server envelope is opened and the plaintext returned,
//   - legacy plaintext is returned as-is.
func (c *Cipher) PrepareForRead(stored string) (string, error) {
	if stored == "" {
		return "", nil
	}
	switch Detect(stored) {
	case ClientOpaque:
		return stored, nil
	case ServerEncrypted:
		return c.open(stored)
	default:
		return stored, nil
	}
}

// seal encrypts plaintext into a server envelope: marker + base64(nonce|ciphertext).
func (c *Cipher) seal(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("fieldcrypt: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return ServerMarker + base64.StdEncoding.EncodeToString(sealed), nil
}

// open decrypts a server envelope produced by seal.
func (c *Cipher) open(stored string) (string, error) {
	switch Detect(stored) {
	case ClientOpaque:
		return "", ErrOpaqueValue
	case Plaintext:
		return "", ErrNotEncrypted
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, ServerMarker))
	if err != nil {
		return "", fmt.Errorf("fieldcrypt: %w", err)
	}
	if len(raw) < c.aead.NonceSize() {
		return "", errors.New("fieldcrypt: envelope too short")
	}
	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("fieldcrypt: %w", err)
	}
	return string(plaintext), nil
}
