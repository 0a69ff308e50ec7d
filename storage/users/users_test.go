package users

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/3nsoft/mailerid-go/crypto/box"
	"github.com/3nsoft/mailerid-go/protocol"
	"github.com/3nsoft/mailerid-go/storage/kv"
	"github.com/3nsoft/mailerid-go/storage/kv/leveldbkv"
)

func newTestStore(t *testing.T) *Store {
	db, err := leveldbkv.OpenDB(filepath.Join(t.TempDir(), "users"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func newLoginKey(t *testing.T, kid string) *LoginKey {
	pk, sk, err := box.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	box.WipeKey(sk)
	return &LoginKey{
		PKey: &protocol.JSONKey{
			K:   pk[:],
			Kid: kid,
			Use: protocol.KeyUseLogin,
			Alg: box.AlgName,
		},
		KDParams: json.RawMessage(`{"salt":"c2FsdA==","logN":14,"r":8,"p":1}`),
	}
}

func TestAddAndLookup(t *testing.T) {
	st := newTestStore(t)
	k1, k2 := newLoginKey(t, "k1"), newLoginKey(t, "k2")
	if err := st.Add(&Record{ID: " Alice@Example.com", LoginKeys: []*LoginKey{k1, k2}}); err != nil {
		t.Fatal(err)
	}

	lk, err := st.LookupLoginKey("alice@example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	if lk.PKey.Kid != "k1" {
		t.Fatalf("empty kid picked %s", lk.PKey.Kid)
	}
	if string(lk.KDParams) != string(k1.KDParams) {
		t.Fatalf("kd params changed: %s", lk.KDParams)
	}
	if lk, err = st.LookupLoginKey("ALICE@example.com", "k2"); err != nil || lk.PKey.Kid != "k2" {
		t.Fatalf("lookup by kid: %v", err)
	}
	if _, err := st.LookupLoginKey("alice@example.com", "k3"); err != ErrUserNotFound {
		t.Fatalf("unknown kid: got %v", err)
	}
	if _, err := st.LookupLoginKey("bob@example.com", ""); err != ErrUserNotFound {
		t.Fatalf("unknown user: got %v", err)
	}
}

func TestAddErrors(t *testing.T) {
	st := newTestStore(t)
	rec := &Record{ID: "alice@example.com", LoginKeys: []*LoginKey{newLoginKey(t, "k1")}}
	if err := st.Add(rec); err != nil {
		t.Fatal(err)
	}
	if err := st.Add(rec); !errors.Is(err, kv.ErrExists) {
		t.Fatalf("second add: got %v", err)
	}
	if err := st.Add(&Record{ID: "bob@example.com"}); err != ErrNoLoginKeys {
		t.Fatalf("no keys: got %v", err)
	}
	bad := newLoginKey(t, "k1")
	bad.PKey.Use = protocol.KeyUseSign
	if err := st.Add(&Record{ID: "bob@example.com", LoginKeys: []*LoginKey{bad}}); !errors.Is(err, protocol.ErrKeyUseMismatch) {
		t.Fatalf("wrong key use: got %v", err)
	}
}

func TestList(t *testing.T) {
	st := newTestStore(t)
	for _, id := range []string{"carol@example.com", "alice@example.com"} {
		if err := st.Add(&Record{ID: id, LoginKeys: []*LoginKey{newLoginKey(t, "k")}}); err != nil {
			t.Fatal(err)
		}
	}
	ids, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "alice@example.com" || ids[1] != "carol@example.com" {
		t.Fatalf("got %v", ids)
	}
}
