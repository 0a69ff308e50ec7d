package box

import (
	"sync"
)

// An Encryptor owns a key and a running nonce. Every Pack uses the
// current nonce and then advances it by 2, so two parties that start
// from nonces of different parity never reuse each other's nonces.
type Encryptor struct {
	mu        sync.Mutex
	key       [KeySize]byte
	nonce     [NonceSize]byte
	destroyed bool
}

// NewEncryptor copies key and nonce into a new Encryptor. The caller
// keeps ownership of its own copies.
func NewEncryptor(key *[KeySize]byte, nonce *[NonceSize]byte) *Encryptor {
	e := new(Encryptor)
	e.key = *key
	e.nonce = *nonce
	return e
}

// Pack encrypts msg in the with-nonce format.
func (e *Encryptor) Pack(msg []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return nil, ErrDestroyed
	}
	c := PackWN(msg, &e.nonce, &e.key)
	AdvanceNonceEvenly(&e.nonce)
	return c, nil
}

// Open decrypts a with-nonce message made with the same key.
func (e *Encryptor) Open(c []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return nil, ErrDestroyed
	}
	return OpenWN(c, &e.key)
}

// Destroy wipes the key. It is safe to call more than once.
func (e *Encryptor) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	WipeKey(&e.key)
	e.destroyed = true
}
