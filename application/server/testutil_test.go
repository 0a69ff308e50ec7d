package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/3nsoft/mailerid-go/application"
	"github.com/3nsoft/mailerid-go/crypto/box"
	"github.com/3nsoft/mailerid-go/protocol"
	"github.com/3nsoft/mailerid-go/protocol/pkl"
	"github.com/3nsoft/mailerid-go/storage/users"
)

const (
	testDomain = "example.com"
	testUser   = "alice@example.com"
	testStart  = 1700000000
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(testStart, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestConfig(t *testing.T) *Config {
	dir := t.TempDir()
	conf := NewConfig(filepath.Join(dir, "config.toml"), "toml", testDomain, nil, nil)
	conf.RootCertsPath = filepath.Join(dir, "root-certs.json")
	conf.UsersDBPath = filepath.Join(dir, "users.db")
	conf.Redirects = map[string]string{"other.example": "https://mid.other.example/"}
	return conf
}

type testServer struct {
	*MidServer
	http    *httptest.Server
	clock   *fakeClock
	loginSK *[box.KeySize]byte
}

func newTestServer(t *testing.T) *testServer {
	conf := newTestConfig(t)
	clock := newFakeClock()
	server, err := newMidServer(conf, application.NewNopLogger(), clock.Now)
	if err != nil {
		t.Fatal(err)
	}
	pk, sk, err := box.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	err = server.Users().Add(&users.Record{
		ID: testUser,
		LoginKeys: []*users.LoginKey{{
			PKey: &protocol.JSONKey{
				K:   pk[:],
				Kid: "login-1",
				Use: protocol.KeyUseLogin,
				Alg: box.AlgName,
			},
			KDParams: json.RawMessage(`{"logN":14}`),
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	ts := &testServer{
		MidServer: server,
		http:      httptest.NewServer(server.Handler()),
		clock:     clock,
		loginSK:   sk,
	}
	t.Cleanup(func() {
		ts.http.Close()
		server.sessions.Stop()
		server.provider.Destroy()
		server.db.Close()
	})
	return ts
}

func (ts *testServer) post(t *testing.T, path, sessionID string, body []byte) *http.Response {
	req, err := http.NewRequest(http.MethodPost, ts.http.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if sessionID != "" {
		req.Header.Set(pkl.SessionHeader, sessionID)
	}
	res, err := ts.http.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func (ts *testServer) start(t *testing.T, userID string) (*http.Response, *pkl.StartReply) {
	body, _ := json.Marshal(&pkl.StartRequest{UserID: userID})
	res := ts.post(t, PKLStartPath, "", body)
	if res.StatusCode != http.StatusOK {
		return res, nil
	}
	reply := new(pkl.StartReply)
	if err := application.UnmarshalBody(res.Body, reply); err != nil {
		t.Fatal(err)
	}
	return res, reply
}

// login runs both login steps and returns the client side exchange.
func (ts *testServer) login(t *testing.T) *pkl.ClientExchange {
	res, reply := ts.start(t, testUser)
	if res.StatusCode != http.StatusOK {
		t.Fatal("start:", res.StatusCode)
	}
	if res.Header.Get(pkl.SessionHeader) != reply.SessionID {
		t.Fatal("session header and reply disagree")
	}
	ex, err := pkl.NewClientExchange(reply, ts.loginSK)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := ex.Response()
	if err != nil {
		t.Fatal(err)
	}
	res = ts.post(t, PKLCompletePath, ex.SessionID(), resp)
	if res.StatusCode != http.StatusOK {
		t.Fatal("complete:", res.StatusCode)
	}
	tag, err := application.ReadBody(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	if err := ex.VerifyServer(tag); err != nil {
		t.Fatal(err)
	}
	return ex
}

func newRecorder(server *MidServer, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}
