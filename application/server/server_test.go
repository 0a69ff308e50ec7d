package server

import (
	"encoding/json"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/3nsoft/mailerid-go/application"
	"github.com/3nsoft/mailerid-go/protocol"
	"github.com/3nsoft/mailerid-go/protocol/pkl"
)

func TestServiceRoot(t *testing.T) {
	ts := newTestServer(t)
	res, err := ts.http.Client().Get(ts.http.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	root := new(protocol.ServiceRoot)
	if err := application.UnmarshalBody(res.Body, root); err != nil {
		t.Fatal(err)
	}
	if root.Provisioning != ProvisioningPath {
		t.Fatal("Unexpected provisioning path", root.Provisioning)
	}
	if root.PreviousCerts == nil || len(root.PreviousCerts) != 0 {
		t.Fatal("Expected an empty list of previous certs")
	}
	info, err := protocol.VerifyCertAndGetPubKey(root.CurrentCert, protocol.KeyUseRoot,
		testStart, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if info.Address != testDomain {
		t.Fatal("Root cert is for", info.Address)
	}
}

func TestProvisioning(t *testing.T) {
	ts := newTestServer(t)
	ex := ts.login(t)
	defer ex.Destroy()

	pkey, skey, err := protocol.GenerateSigningKeyPair(protocol.KeyUseSign, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer skey.Wipe()
	req, _ := json.Marshal(&protocol.CertifyRequest{PKey: protocol.KeyToJSON(pkey), Duration: 3600})
	c, err := ex.Encryptor().Pack(req)
	if err != nil {
		t.Fatal(err)
	}
	res := ts.post(t, CertifyPath, ex.SessionID(), c)
	if res.StatusCode != http.StatusOK {
		t.Fatal("certify:", res.StatusCode)
	}
	body, _ := application.ReadBody(res.Body)
	plain, err := ex.Encryptor().Open(body)
	if err != nil {
		t.Fatal(err)
	}
	reply := new(protocol.CertifyReply)
	if err := json.Unmarshal(plain, reply); err != nil {
		t.Fatal(err)
	}

	chain := &protocol.CertsChain{
		Root: ts.Provider().RootCert(),
		Prov: reply.ProvCert,
		User: reply.UserCert,
	}
	info, err := protocol.VerifyChainAndGetUserKey(chain, testDomain, testStart+60)
	if err != nil {
		t.Fatal(err)
	}
	if info.Address != testUser {
		t.Fatal("User cert is for", info.Address)
	}
	kc, _ := protocol.DecodeKeyCert(reply.UserCert)
	if kc.ExpiresAt-kc.IssuedAt != 3600 {
		t.Fatal("Requested duration not honored:", kc.ExpiresAt-kc.IssuedAt)
	}

	// the session is single use
	c, _ = ex.Encryptor().Pack(req)
	if res := ts.post(t, CertifyPath, ex.SessionID(), c); res.StatusCode != int(pkl.StatusNoSession) {
		t.Fatal("Second certify on a session:", res.StatusCode)
	}
}

func TestStartStatuses(t *testing.T) {
	ts := newTestServer(t)
	if res, _ := ts.start(t, "bob@example.com"); res.StatusCode != int(pkl.StatusUnknownUser) {
		t.Error("Unknown user:", res.StatusCode)
	}
	if res, _ := ts.start(t, "carol@unknown.example"); res.StatusCode != int(pkl.StatusUnknownUser) {
		t.Error("Unserved domain:", res.StatusCode)
	}
	if res := ts.post(t, PKLStartPath, "", []byte("{")); res.StatusCode != int(pkl.StatusMalformed) {
		t.Error("Malformed start:", res.StatusCode)
	}

	res, _ := ts.start(t, "dave@other.example")
	if res.StatusCode != int(pkl.StatusRedirect) {
		t.Fatal("Redirected domain:", res.StatusCode)
	}
	redirect := new(pkl.RedirectReply)
	if err := application.UnmarshalBody(res.Body, redirect); err != nil {
		t.Fatal(err)
	}
	if redirect.Redirect != "https://mid.other.example/" {
		t.Error("Unexpected redirect", redirect.Redirect)
	}
}

func TestStartDuplicate(t *testing.T) {
	ts := newTestServer(t)
	_, reply := ts.start(t, testUser)
	body, _ := json.Marshal(&pkl.StartRequest{UserID: testUser})
	if res := ts.post(t, PKLStartPath, reply.SessionID, body); res.StatusCode != int(pkl.StatusDuplicate) {
		t.Fatal("Second start on a session:", res.StatusCode)
	}
}

func TestCompleteWithoutStart(t *testing.T) {
	ts := newTestServer(t)
	if res := ts.post(t, PKLCompletePath, "", make([]byte, 72)); res.StatusCode != int(pkl.StatusNoSession) {
		t.Fatal("Complete without session:", res.StatusCode)
	}
	if res := ts.post(t, PKLCompletePath, "no-such-session", make([]byte, 72)); res.StatusCode != int(pkl.StatusNoSession) {
		t.Fatal("Complete on unknown session:", res.StatusCode)
	}
}

func TestCompleteBitFlip(t *testing.T) {
	ts := newTestServer(t)
	_, reply := ts.start(t, testUser)
	ex, err := pkl.NewClientExchange(reply, ts.loginSK)
	if err != nil {
		t.Fatal(err)
	}
	resp, _ := ex.Response()
	resp[len(resp)-1] ^= 0x80
	if res := ts.post(t, PKLCompletePath, reply.SessionID, resp); res.StatusCode != int(pkl.StatusAuthFailed) {
		t.Fatal("Flipped response:", res.StatusCode)
	}
	// the session was closed
	resp[len(resp)-1] ^= 0x80
	if res := ts.post(t, PKLCompletePath, reply.SessionID, resp); res.StatusCode != int(pkl.StatusNoSession) {
		t.Fatal("Complete after failure:", res.StatusCode)
	}
}

func TestCompleteTwice(t *testing.T) {
	ts := newTestServer(t)
	ex := ts.login(t)
	resp, _ := ex.Encryptor().Pack([]byte("again"))
	if res := ts.post(t, PKLCompletePath, ex.SessionID(), resp); res.StatusCode != int(pkl.StatusDuplicate) {
		t.Fatal("Second complete:", res.StatusCode)
	}
}

func TestCertifyUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	_, reply := ts.start(t, testUser)
	if res := ts.post(t, CertifyPath, reply.SessionID, []byte("x")); res.StatusCode != int(pkl.StatusNoSession) {
		t.Fatal("Certify before complete:", res.StatusCode)
	}
	if res := ts.post(t, CertifyPath, "", []byte("x")); res.StatusCode != int(pkl.StatusNoSession) {
		t.Fatal("Certify without session:", res.StatusCode)
	}
}

func TestCertifyGarbage(t *testing.T) {
	ts := newTestServer(t)
	ex := ts.login(t)
	c, _ := ex.Encryptor().Pack([]byte("not json"))
	if res := ts.post(t, CertifyPath, ex.SessionID(), c); res.StatusCode != int(pkl.StatusMalformed) {
		t.Fatal("Garbage certify request:", res.StatusCode)
	}
	// closed even on failure
	if _, ok := ts.sessions.Get(ex.SessionID()); ok {
		t.Fatal("Session survived a certify attempt")
	}
}

func TestSessionTimeout(t *testing.T) {
	ts := newTestServer(t)
	_, reply := ts.start(t, testUser)
	ts.clock.Advance(ts.conf.sessionTimeout() + time.Second)
	ts.sessions.Sweep()
	ex, _ := pkl.NewClientExchange(reply, ts.loginSK)
	resp, _ := ex.Response()
	if res := ts.post(t, PKLCompletePath, reply.SessionID, resp); res.StatusCode != int(pkl.StatusNoSession) {
		t.Fatal("Complete on an evicted session:", res.StatusCode)
	}
}

func TestMetricsRoute(t *testing.T) {
	conf := newTestConfig(t)
	conf.Metrics = true
	server, err := newMidServer(conf, application.NewNopLogger(), newFakeClock().Now)
	if err != nil {
		t.Fatal(err)
	}
	defer server.Shutdown()
	rec := newRecorder(server, http.MethodGet, MetricsPath)
	if rec.Code != http.StatusOK {
		t.Fatal("Metrics route:", rec.Code)
	}

	conf = newTestConfig(t)
	server2, err := newMidServer(conf, application.NewNopLogger(), newFakeClock().Now)
	if err != nil {
		t.Fatal(err)
	}
	defer server2.Shutdown()
	if rec := newRecorder(server2, http.MethodGet, MetricsPath); rec.Code != http.StatusNotFound {
		t.Fatal("Metrics route without metrics:", rec.Code)
	}
}

func TestHotReloadRouting(t *testing.T) {
	ts := newTestServer(t)
	conf := *ts.conf
	conf.Redirects = map[string]string{"third.example": "https://mid.third.example/"}
	if err := conf.Save(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ts.ServerBase.Shutdown() })
	ts.RunInBackground(func() {
		ts.HotReload(ts.reloadRouting)
	})
	if err := syscall.Kill(os.Getpid(), syscall.SIGUSR2); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan bool, 1)
	go func() {
		for i := 0; i < 200; i++ {
			ts.RLock()
			redirect := ts.conf.Redirects["third.example"]
			ts.RUnlock()
			if redirect != "" {
				reloaded <- true
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		reloaded <- false
	}()
	select {
	case ok := <-reloaded:
		if !ok {
			t.Fatal("Redirects were not reloaded")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Server lock still held after reload")
	}

	res, _ := ts.start(t, "erin@third.example")
	if res.StatusCode != int(pkl.StatusRedirect) {
		t.Fatal("Reloaded redirect:", res.StatusCode)
	}
	res, _ = ts.start(t, "dave@other.example")
	if res.StatusCode != int(pkl.StatusUnknownUser) {
		t.Fatal("Dropped redirect:", res.StatusCode)
	}
}
