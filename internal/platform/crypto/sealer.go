package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"

	"github.com/juju/errors"
	"golang.org/x/crypto/hkdf"
)

// sealedPrefix marks ciphertext so rows written before a key was configured
// still read back as plaintext.
var sealedPrefix = []byte("lm1:")

const hkdfInfo = "loeschmich requester data"

type Sealer struct {
	key []byte
}

// New builds a sealer from ENCRYPTION_KEY. Hex or base64 keys that decode to
// 32 bytes are used directly; anything else is stretched with HKDF-SHA256.
// An empty key yields a pass-through sealer.
func New(key string) (*Sealer, error) {
	if key == "" {
		return &Sealer{}, nil
	}
	decoded := decodeKey(key)
	if len(decoded) == 32 {
		return &Sealer{key: decoded}, nil
	}
	if len(decoded) < 16 {
		return nil, errors.NotValidf("ENCRYPTION_KEY shorter than 16 bytes")
	}
	derived := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, decoded, nil, []byte(hkdfInfo)), derived); err != nil {
		return nil, errors.Annotate(err, "deriving key")
	}
	return &Sealer{key: derived}, nil
}

func (s *Sealer) Configured() bool {
	return len(s.key) == 32
}

func (s *Sealer) Encrypt(plain []byte) ([]byte, error) {
	if len(plain) == 0 || !s.Configured() {
		return plain, nil
	}
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Trace(err)
	}
	out := append([]byte{}, sealedPrefix...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plain, nil), nil
}

func (s *Sealer) Decrypt(stored []byte) ([]byte, error) {
	if !bytes.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	if !s.Configured() {
		return nil, errors.New("stored data is encrypted but ENCRYPTION_KEY is not set")
	}
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}
	body := stored[len(sealedPrefix):]
	if len(body) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	plain, err := gcm.Open(nil, body[:gcm.NonceSize()], body[gcm.NonceSize():], nil)
	if err != nil {
		return nil, errors.Annotate(err, "decrypting")
	}
	return plain, nil
}

func (s *Sealer) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, errors.Trace(err)
	}
	gcm, err := cipher.NewGCM(block)
	return gcm, errors.Trace(err)
}

func decodeKey(raw string) []byte {
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	return []byte(raw)
}
