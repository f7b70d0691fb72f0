package tokens

import "testing"

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken(0)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateOpaqueToken(DefaultBytes)
	if a == b {
		t.Fatal("tokens should differ")
	}
	if len(a) != 43 { // 32 bytes base64url sin padding
		t.Fatalf("unexpected length %d", len(a))
	}
	if LooksLikeJWT(a) {
		t.Fatal("opaque token must not look like a JWT")
	}
}

func TestVerifyS256(t *testing.T) {
	// RFC 7636 Appendix B
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	if !VerifyS256(verifier, challenge) {
		t.Fatal("RFC 7636 vector should verify")
	}
	if VerifyS256("other", challenge) || VerifyS256("", challenge) {
		t.Fatal("unexpected match")
	}
}

func TestLooksLikeJWT(t *testing.T) {
	if !LooksLikeJWT("a.b.c") || LooksLikeJWT("a.b") || LooksLikeJWT("abc") {
		t.Fatal("LooksLikeJWT mismatch")
	}
}
