package captcha

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signToken(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return payload + ":" + hex.EncodeToString(mac.Sum(nil))
}

func TestHMACVerifier_ValidToken(t *testing.T) {
	v := NewHMAC("shared-secret")
	ok, err := v.Verify(context.Background(), signToken("shared-secret", "challenge-42"))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("valid token rejected")
	}
}

func TestHMACVerifier_WrongSecret(t *testing.T) {
	v := NewHMAC("shared-secret")
	ok, err := v.Verify(context.Background(), signToken("other-secret", "challenge-42"))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("token signed with the wrong secret accepted")
	}
}

func TestHMACVerifier_TamperedPayload(t *testing.T) {
	v := NewHMAC("shared-secret")
	token := signToken("shared-secret", "challenge-42")
	tampered := "challenge-43" + token[len("challenge-42"):]
	ok, err := v.Verify(context.Background(), tampered)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("tampered payload accepted")
	}
}

func TestHMACVerifier_Malformed(t *testing.T) {
	v := NewHMAC("shared-secret")
	for _, token := range []string{"", "no-separator", ":leading", "trailing:"} {
		ok, err := v.Verify(context.Background(), token)
		if err != nil {
			t.Fatalf("Verify(%q): %v", token, err)
		}
		if ok {
			t.Errorf("malformed token %q accepted", token)
		}
	}
}

func TestHMACVerifier_PayloadWithColons(t *testing.T) {
	v := NewHMAC("shared-secret")
	ok, err := v.Verify(context.Background(), signToken("shared-secret", "a:b:c"))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("payload containing colons should verify (split on last colon)")
	}
}

func TestStaticVerifier(t *testing.T) {
	v := StaticVerifier{"good": true}
	if ok, _ := v.Verify(context.Background(), "good"); !ok {
		t.Error("approved token rejected")
	}
	if ok, _ := v.Verify(context.Background(), "bad"); ok {
		t.Error("unknown token accepted")
	}
}
