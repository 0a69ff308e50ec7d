package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/3nsoft/mailerid-go/application"
	"github.com/3nsoft/mailerid-go/protocol"
	"github.com/3nsoft/mailerid-go/protocol/pkl"
	"github.com/3nsoft/mailerid-go/protocol/session"
	"github.com/3nsoft/mailerid-go/storage/users"
)

// Routes of the provider, relative to its service root.
const (
	ProvisioningPath = "prov/"
	PKLStartPath     = "/prov/pkl/start"
	PKLCompletePath  = "/prov/pkl/complete"
	CertifyPath      = "/prov/certify"
	MetricsPath      = "/metrics"
)

type errorReply struct {
	Error string `json:"error"`
}

func (server *MidServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", server.handleServiceRoot)
	mux.HandleFunc("POST "+PKLStartPath, server.handleStart)
	mux.HandleFunc("POST "+PKLCompletePath, server.handleComplete)
	mux.HandleFunc("POST "+CertifyPath, server.handleCertify)
	if server.conf.Metrics {
		mux.Handle("GET "+MetricsPath, NewMetricsHandler())
	}
	return mux
}

func (server *MidServer) handleServiceRoot(w http.ResponseWriter, r *http.Request) {
	application.WriteJSON(w, http.StatusOK, &protocol.ServiceRoot{
		CurrentCert:   server.provider.RootCert(),
		PreviousCerts: server.provider.PrevCerts(),
		Provisioning:  ProvisioningPath,
	})
}

// writeError replies with the status of a login error, and with 500
// for anything else.
func (server *MidServer) writeError(w http.ResponseWriter, step string, err error) {
	var perr *pkl.Error
	if !errors.As(err, &perr) {
		server.Logger().Error("Request failed", "step", step, "error", err.Error())
		loginOutcomes.WithLabelValues(step, "500").Inc()
		application.WriteJSON(w, http.StatusInternalServerError, &errorReply{"Internal error"})
		return
	}
	loginOutcomes.WithLabelValues(step, strconv.Itoa(int(perr.Status))).Inc()
	if perr.Status == pkl.StatusRedirect {
		application.WriteJSON(w, int(perr.Status), &pkl.RedirectReply{Redirect: perr.Redirect})
		return
	}
	application.WriteJSON(w, int(perr.Status), &errorReply{perr.Msg})
}

// lookupUserKey finds login keys of users of served domains and sends
// users of redirected domains to their provider.
func (server *MidServer) lookupUserKey(userID, kid string) (*pkl.UserKey, error) {
	domain := protocol.AddressDomain(userID)
	server.RLock()
	serves := server.conf.serves(domain)
	redirect := server.conf.Redirects[domain]
	server.RUnlock()
	if !serves {
		if redirect != "" {
			return nil, pkl.Redirect(redirect)
		}
		return nil, pkl.ErrUnknownUser
	}
	lk, err := server.users.LookupLoginKey(userID, kid)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, pkl.ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}
	return &pkl.UserKey{PKey: lk.PKey, KeyDerivParams: lk.KDParams}, nil
}

func (server *MidServer) handleStart(w http.ResponseWriter, r *http.Request) {
	var existing *session.Session[*pkl.Params]
	if id := r.Header.Get(pkl.SessionHeader); id != "" {
		existing, _ = server.sessions.Get(id)
	}
	req := new(pkl.StartRequest)
	if err := application.UnmarshalBody(r.Body, req); err != nil {
		server.writeError(w, "start", pkl.ErrMalformed)
		return
	}
	s, reply, err := server.login.Start(existing, req)
	if err != nil {
		server.Logger().Debug("PKL start refused", "user", req.UserID, "error", err.Error())
		server.writeError(w, "start", err)
		return
	}
	loginOutcomes.WithLabelValues("start", "200").Inc()
	w.Header().Set(pkl.SessionHeader, s.ID())
	application.WriteJSON(w, http.StatusOK, reply)
}

func (server *MidServer) handleComplete(w http.ResponseWriter, r *http.Request) {
	s, err := session.Require[*pkl.Params](server.sessions, r.Header.Get(pkl.SessionHeader), false)
	if err != nil {
		server.writeError(w, "complete", pkl.ErrNoSession)
		return
	}
	body, err := application.ReadBody(r.Body)
	if err != nil {
		server.writeError(w, "complete", pkl.ErrMalformed)
		return
	}
	tag, err := server.login.Complete(s, body)
	if err != nil {
		if err == pkl.ErrAuthFailed {
			server.Logger().Warn("PKL authentication failed",
				"session", s.ID(), "user", s.Params.UserID)
		}
		server.writeError(w, "complete", err)
		return
	}
	loginOutcomes.WithLabelValues("complete", "200").Inc()
	application.WriteBinary(w, tag)
}

// handleCertify issues a user certificate on an authorized session and
// closes the session, whatever the outcome.
func (server *MidServer) handleCertify(w http.ResponseWriter, r *http.Request) {
	s, err := session.Require[*pkl.Params](server.sessions, r.Header.Get(pkl.SessionHeader), true)
	if err != nil {
		// an unauthorized session looks the same as a missing one
		server.writeError(w, "certify", pkl.ErrNoSession)
		return
	}
	defer s.Close()

	body, err := application.ReadBody(r.Body)
	if err != nil {
		server.writeError(w, "certify", pkl.ErrMalformed)
		return
	}
	enc := s.Params.Encryptor()
	plain, err := enc.Open(body)
	if err != nil {
		server.Logger().Warn("Certify request does not open",
			"session", s.ID(), "user", s.Params.UserID)
		server.writeError(w, "certify", pkl.ErrAuthFailed)
		return
	}
	req := new(protocol.CertifyRequest)
	if err := json.Unmarshal(plain, req); err != nil || req.PKey == nil {
		server.writeError(w, "certify", pkl.ErrMalformed)
		return
	}

	reply, err := server.provider.Certifier().Certify(req.PKey, s.Params.UserID, req.Duration)
	if errors.Is(err, protocol.ErrCertifierDestroyed) {
		// raced with a provider update
		reply, err = server.provider.Certifier().Certify(req.PKey, s.Params.UserID, req.Duration)
	}
	if err != nil {
		server.Logger().Info("Certify refused", "user", s.Params.UserID, "error", err.Error())
		server.writeError(w, "certify", pkl.ErrMalformed)
		return
	}
	buf, err := json.Marshal(reply)
	if err != nil {
		server.writeError(w, "certify", err)
		return
	}
	c, err := enc.Pack(buf)
	if err != nil {
		server.writeError(w, "certify", err)
		return
	}
	certsIssued.Inc()
	loginOutcomes.WithLabelValues("certify", "200").Inc()
	server.Logger().Info("Issued user certificate", "user", s.Params.UserID,
		"kid", req.PKey.Kid)
	application.WriteBinary(w, c)
}
