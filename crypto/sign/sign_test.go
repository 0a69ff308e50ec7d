package sign

import (
	"bytes"
	"testing"
)

// copied from official crypto.ed25519 tests
func TestVerifySignature(t *testing.T) {
	key, err := GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}

	message := []byte("test message")
	sig := key.Sign(message)

	pk, ok := key.Public()
	if !ok {
		t.Errorf("bad PK?")
	}

	if !pk.Verify(message, sig) {
		t.Errorf("valid signature rejected")
	}

	wrongMessage := []byte("wrong message")
	if pk.Verify(wrongMessage, sig) {
		t.Errorf("signature of different message accepted")
	}
}

func TestDeterministicKey(t *testing.T) {
	seed := []byte("deterministic tests need 256 bit")
	sk1, err := GenerateKey(bytes.NewReader(seed))
	if err != nil {
		t.Fatal(err)
	}
	sk2, err := GenerateKey(bytes.NewReader(seed))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(sk1, sk2) {
		t.Fatal("Expect the same key from the same seed")
	}
}

func TestWipe(t *testing.T) {
	key, err := GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	key.Wipe()
	if !bytes.Equal(key, make([]byte, PrivateKeySize)) {
		t.Fatal("Expect wiped key")
	}
}

func TestVerifyRejectsBadLengths(t *testing.T) {
	key, err := GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	pk, _ := key.Public()
	sig := key.Sign([]byte("msg"))
	if pk[:10].Verify([]byte("msg"), sig) {
		t.Error("Short public key accepted")
	}
	if pk.Verify([]byte("msg"), sig[:10]) {
		t.Error("Short signature accepted")
	}
}
