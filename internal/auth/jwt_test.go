package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	j := NewJWT("secret", "cyberhoot")
	token, err := j.Issue("alice", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	username, err := j.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if username != "alice" {
		t.Fatalf("expected alice, got %s", username)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	j := NewJWT("secret", "cyberhoot")
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return issued }
	token, err := j.Issue("alice", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	j.now = func() time.Time { return issued.Add(time.Hour) }
	if _, err := j.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	j := NewJWT("secret", "cyberhoot")

	other, _ := NewJWT("other-secret", "cyberhoot").Issue("alice", time.Hour)
	if _, err := j.Verify(other); err != ErrInvalidToken {
		t.Fatalf("token signed with another secret must fail, got %v", err)
	}

	wrongIssuer, _ := NewJWT("secret", "someone-else").Issue("alice", time.Hour)
	if _, err := j.Verify(wrongIssuer); err != ErrInvalidToken {
		t.Fatalf("token from another issuer must fail, got %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "alice", Issuer: "cyberhoot"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := j.Verify(none); err != ErrInvalidToken {
		t.Fatalf("unsigned token must fail, got %v", err)
	}

	if _, err := j.Verify("not-a-token"); err != ErrInvalidToken {
		t.Fatalf("garbage must fail, got %v", err)
	}
}
