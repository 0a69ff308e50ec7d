package pkl

import (
	"encoding/json"

	"github.com/3nsoft/mailerid-go/protocol"
)

// SessionHeader carries the session id, both on the start reply and on
// every later request of the session.
const SessionHeader = "X-Session-Id"

// A StartRequest names the user logging in, and optionally the login key.
type StartRequest struct {
	UserID string `json:"userId"`
	Kid    string `json:"kid,omitempty"`
}

// A StartReply carries the challenge. SessionKey is the encrypted
// session key without its authentication tag.
type StartReply struct {
	SessionID      string          `json:"sessionId"`
	SessionKey     []byte          `json:"sessionKey"`
	ServerPubKey   []byte          `json:"serverPubKey"`
	KeyDerivParams json.RawMessage `json:"keyDerivParams,omitempty"`
}

// A RedirectReply points the client to another provider.
type RedirectReply struct {
	Redirect string `json:"redirect"`
}

// A UserKey is a user's login public key with the parameters the client
// needs to derive the matching secret key. KeyDerivParams is opaque here.
type UserKey struct {
	PKey           *protocol.JSONKey
	KeyDerivParams json.RawMessage
}

// A UserKeyLookup finds a user's login key by canonical user id and
// optional key id. It returns ErrUnknownUser when there is no such user
// or key, and may return a Redirect for users served elsewhere.
type UserKeyLookup func(userID, kid string) (*UserKey, error)
