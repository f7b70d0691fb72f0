package password

import (
	"strings"
	"testing"
)

var fast = Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 16}

func TestArgon2idRoundTrip(t *testing.T) {
	h, err := HashWithParams(fast, "test-secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(h, "$argon2id$v=19$") {
		t.Fatalf("unexpected format: %s", h)
	}
	if !Verify("test-secret", h) {
		t.Fatal("expected match")
	}
	if Verify("test-secreT", h) {
		t.Fatal("expected mismatch")
	}
}

func TestBcryptVerify(t *testing.T) {
	h, err := HashBcrypt("demo-secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !IsHashed(h) {
		t.Fatal("bcrypt hash not recognized")
	}
	if !Verify("demo-secret", h) || Verify("nope", h) {
		t.Fatal("bcrypt verify mismatch")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	for _, enc := range []string{"", "plain-text", "$argon2id$v=19$broken", "$argon2id$v=18$m=1,t=1,p=1$AAAA$AAAA"} {
		if Verify("x", enc) {
			t.Errorf("Verify accepted %q", enc)
		}
	}
	if _, err := Hash(""); err != ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}
