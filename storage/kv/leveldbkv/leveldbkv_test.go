package leveldbkv

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/3nsoft/mailerid-go/storage/kv"
)

func TestPutGetDelete(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Get([]byte("k")); err != db.ErrNotFound() {
		t.Fatalf("missing key: got %v", err)
	}
	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	if v, err := db.Get([]byte("k")); err != nil || !bytes.Equal(v, []byte("v")) {
		t.Fatalf("got %q, %v", v, err)
	}
	if ok, err := db.Has([]byte("k")); err != nil || !ok {
		t.Fatal("Has missed a stored key")
	}
	if err := db.Delete([]byte("k")); err != nil {
		t.Fatal(err)
	}
	if ok, _ := db.Has([]byte("k")); ok {
		t.Fatal("key survived delete")
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	db, err := OpenDB(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	db.Close()
	db, err = OpenDB(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if v, err := db.Get([]byte("k")); err != nil || string(v) != "v" {
		t.Fatalf("value lost on reopen: %q, %v", v, err)
	}
}

func TestPrefixIterator(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	for _, k := range []string{"a/1", "u/1", "u/2", "v/1"} {
		if err := db.Put([]byte(k), []byte(k)); err != nil {
			t.Fatal(err)
		}
	}
	iter := db.NewIterator(kv.BytesPrefix([]byte("u/")))
	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "u/1" || keys[1] != "u/2" {
		t.Fatalf("got %v", keys)
	}
}
