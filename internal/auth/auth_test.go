package auth

import "testing"

func TestVerify_DisabledWhenSecretEmpty(t *testing.T) {
	a := NewAuthenticator("")
	if a.Enabled() {
		t.Error("empty secret should disable auth")
	}
	if !a.Verify("") || !a.Verify("anything") {
		t.Error("disabled auth should accept any token")
	}
}

func TestVerify_MatchingToken(t *testing.T) {
	a := NewAuthenticator("s3cret")
	if !a.Enabled() {
		t.Error("non-empty secret should enable auth")
	}
	if !a.Verify("s3cret") {
		t.Error("matching token rejected")
	}
}

func TestVerify_WrongToken(t *testing.T) {
	a := NewAuthenticator("s3cret")
	for _, token := range []string{"", "s3cre", "s3cret ", "S3CRET", "s3cretx"} {
		if a.Verify(token) {
			t.Errorf("token %q should be rejected", token)
		}
	}
}
