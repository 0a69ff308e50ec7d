package pkl

import (
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/3nsoft/mailerid-go/crypto"
	"github.com/3nsoft/mailerid-go/crypto/box"
)

// A ClientExchange runs the client side of the login exchange for one
// start reply. It owns the DH and session keys until Destroy.
type ClientExchange struct {
	sessionID string

	mu         sync.Mutex
	challenge  []byte
	dhKey      *[box.KeySize]byte
	sessionKey *[box.KeySize]byte
	encryptor  *box.Encryptor
}

// NewClientExchange recovers the session key from reply with the user's
// login secret key. The recovered key is not authenticated until
// VerifyServer succeeds.
func NewClientExchange(reply *StartReply, loginSK *[box.KeySize]byte) (*ClientExchange, error) {
	if reply == nil || reply.SessionID == "" ||
		len(reply.ServerPubKey) != box.KeySize ||
		len(reply.SessionKey) != box.NonceSize+box.KeySize {
		return nil, ErrMalformed
	}
	var serverPub [box.KeySize]byte
	copy(serverPub[:], reply.ServerPubKey)
	dhKey := box.CalcDHSharedKey(&serverPub, loginSK)

	key, err := box.DecryptWNUnverified(reply.SessionKey, dhKey)
	if err != nil {
		box.WipeKey(dhKey)
		return nil, fmt.Errorf("session key: %w", err)
	}
	sessionKey := new([box.KeySize]byte)
	copy(sessionKey[:], key)
	crypto.Wipe(key)

	nonce, _ := box.NonceOf(reply.SessionKey)
	box.AdvanceNonceOddly(nonce)

	challenge := make([]byte, len(reply.SessionKey))
	copy(challenge, reply.SessionKey)
	return &ClientExchange{
		sessionID:  reply.SessionID,
		challenge:  challenge,
		dhKey:      dhKey,
		sessionKey: sessionKey,
		encryptor:  box.NewEncryptor(sessionKey, nonce),
	}, nil
}

// SessionID returns the id of the session being logged into.
func (c *ClientExchange) SessionID() string {
	return c.sessionID
}

// Response returns the body of the complete request: the session key
// encrypted under itself on the first odd nonce.
func (c *ClientExchange) Response() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionKey == nil {
		return nil, box.ErrDestroyed
	}
	return c.encryptor.Pack(c.sessionKey[:])
}

// VerifyServer checks the server's reply to complete. It proves that
// the server knew the DH key the challenge was made with. The DH key is
// wiped either way.
func (c *ClientExchange) VerifyServer(tag []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dhKey == nil {
		return box.ErrDestroyed
	}
	defer func() {
		box.WipeKey(c.dhKey)
		c.dhKey = nil
	}()
	if len(tag) != box.TagSize {
		return fmt.Errorf("server verification: %w", ErrAuthFailed)
	}
	full := make([]byte, 0, len(c.challenge)+len(tag))
	full = append(full, c.challenge...)
	full = append(full, tag...)
	key, err := box.OpenWN(full, c.dhKey)
	defer crypto.Wipe(key)
	if err != nil || subtle.ConstantTimeCompare(key, c.sessionKey[:]) != 1 {
		return fmt.Errorf("server verification: %w", ErrAuthFailed)
	}
	return nil
}

// Encryptor returns the client side encryptor of the session. It keeps
// working after Destroy wipes the exchange's own copies of the keys.
func (c *ClientExchange) Encryptor() *box.Encryptor {
	return c.encryptor
}

// Destroy wipes the DH and session keys. The encryptor is left to its
// owner.
func (c *ClientExchange) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	box.WipeKey(c.dhKey)
	c.dhKey = nil
	box.WipeKey(c.sessionKey)
	c.sessionKey = nil
}
