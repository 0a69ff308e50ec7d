package pkl

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"sync"

	"github.com/3nsoft/mailerid-go/crypto"
	"github.com/3nsoft/mailerid-go/crypto/box"
	"github.com/3nsoft/mailerid-go/protocol"
	"github.com/3nsoft/mailerid-go/protocol/session"
)

// Params is the per-session state of a login. The session key and the
// server verification bytes live only between start and complete; the
// encryptor lives until the session is closed.
type Params struct {
	UserID string

	mu                 sync.Mutex
	encryptor          *box.Encryptor
	sessionKey         *[box.KeySize]byte
	challengeNonce     [box.NonceSize]byte
	serverVerification []byte
}

// Encryptor returns the server side encryptor of an authorized session.
func (p *Params) Encryptor() *box.Encryptor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encryptor
}

func (p *Params) wipeChallenge() {
	box.WipeKey(p.sessionKey)
	p.sessionKey = nil
	crypto.Wipe(p.serverVerification)
	p.serverVerification = nil
}

func (p *Params) wipe() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wipeChallenge()
	if p.encryptor != nil {
		p.encryptor.Destroy()
	}
}

// A Server runs the server side of the login exchange over a session
// store.
type Server struct {
	store  session.Store[*Params]
	lookup UserKeyLookup
}

// NewServer creates a login server. lookup finds login keys by
// canonical user id.
func NewServer(store session.Store[*Params], lookup UserKeyLookup) *Server {
	return &Server{store: store, lookup: lookup}
}

// Store returns the session store the server opens sessions in.
func (srv *Server) Store() session.Store[*Params] {
	return srv.store
}

// Start handles the first step. existing is the session named by the
// request, if any; a start on an existing session is a duplicate.
func (srv *Server) Start(existing *session.Session[*Params],
	req *StartRequest) (*session.Session[*Params], *StartReply, error) {
	if existing != nil {
		return nil, nil, ErrDuplicate
	}
	if req == nil || strings.TrimSpace(req.UserID) == "" {
		return nil, nil, ErrMalformed
	}
	userID := protocol.CanonicalAddress(req.UserID)
	ukey, err := srv.lookup(userID, req.Kid)
	if err != nil {
		return nil, nil, err
	}
	if ukey == nil {
		return nil, nil, ErrUnknownUser
	}
	upkey, err := protocol.LoginPublicKeyFromJSON(ukey.PKey)
	if err != nil {
		return nil, nil, fmt.Errorf("stored login key of %s: %w", userID, err)
	}
	var userPub [box.KeySize]byte
	copy(userPub[:], upkey.K)

	serverPub, serverSK, err := box.GenerateKey(nil)
	if err != nil {
		return nil, nil, err
	}
	dhKey := box.CalcDHSharedKey(&userPub, serverSK)
	box.WipeKey(serverSK)
	defer box.WipeKey(dhKey)

	rawKey, err := crypto.RandomBytes(box.KeySize)
	if err != nil {
		return nil, nil, err
	}
	sessionKey := new([box.KeySize]byte)
	copy(sessionKey[:], rawKey)
	crypto.Wipe(rawKey)
	rawNonce, err := crypto.MakeRand(box.NonceSize)
	if err != nil {
		box.WipeKey(sessionKey)
		return nil, nil, err
	}
	var nonce [box.NonceSize]byte
	copy(nonce[:], rawNonce)

	c := box.PackWN(sessionKey[:], &nonce, dhKey)
	split := len(c) - box.TagSize
	tag := make([]byte, box.TagSize)
	copy(tag, c[split:])

	s, err := srv.store.New()
	if err != nil {
		box.WipeKey(sessionKey)
		return nil, nil, err
	}
	encNonce := nonce
	box.AdvanceNonceEvenly(&encNonce)
	p := &Params{
		UserID:             userID,
		encryptor:          box.NewEncryptor(sessionKey, &encNonce),
		sessionKey:         sessionKey,
		challengeNonce:     nonce,
		serverVerification: tag,
	}
	s.Params = p
	s.AddCleanUp(p.wipe)

	return s, &StartReply{
		SessionID:      s.ID(),
		SessionKey:     c[:split],
		ServerPubKey:   serverPub[:],
		KeyDerivParams: ukey.KeyDerivParams,
	}, nil
}

// Complete handles the second step. On success the session becomes
// authorized and the returned bytes let the client verify the server.
// On a failed check the session is closed.
func (srv *Server) Complete(s *session.Session[*Params], response []byte) ([]byte, error) {
	if s == nil || s.Params == nil {
		return nil, ErrNoSession
	}
	if s.IsAuthorized() {
		return nil, ErrDuplicate
	}
	tag, err := s.Params.check(response)
	switch {
	case err == ErrAuthFailed:
		s.Close()
		return nil, err
	case err != nil:
		return nil, err
	}
	s.Authorize()
	return tag, nil
}

// check verifies the client's response and consumes the challenge
// whatever the outcome.
func (p *Params) check(response []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessionKey == nil {
		return nil, ErrDuplicate
	}
	defer p.wipeChallenge()

	expected := p.challengeNonce
	box.AdvanceNonceOddly(&expected)
	nonce, err := box.NonceOf(response)
	if err != nil || subtle.ConstantTimeCompare(nonce[:], expected[:]) != 1 {
		return nil, ErrAuthFailed
	}
	key, err := box.OpenWN(response, p.sessionKey)
	defer crypto.Wipe(key)
	if err != nil || subtle.ConstantTimeCompare(key, p.sessionKey[:]) != 1 {
		return nil, ErrAuthFailed
	}
	tag := p.serverVerification
	p.serverVerification = nil
	return tag, nil
}
