package erasure

import (
	"encoding/json"

	"github.com/juju/errors"
)

type Sealer interface {
	Encrypt(plain []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// SealRequester serialises the requester for storage, encrypting it when a
// sealer is configured.
func SealRequester(sealer Sealer, r Requester) ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if sealer == nil {
		return raw, nil
	}
	out, err := sealer.Encrypt(raw)
	return out, errors.Annotate(err, "sealing requester")
}

func OpenRequester(sealer Sealer, stored []byte) (Requester, error) {
	var r Requester
	if len(stored) == 0 {
		return r, nil
	}
	raw := stored
	if sealer != nil {
		var err error
		if raw, err = sealer.Decrypt(stored); err != nil {
			return r, errors.Annotate(err, "opening requester")
		}
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, errors.Annotate(err, "decoding requester")
	}
	return r, nil
}
