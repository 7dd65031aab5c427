package auth

import (
	"testing"

	"parity-league/models"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("test-secret")

	token, err := svc.GenerateToken(models.SenderRolePlayer, "P01")
	if err != nil {
		t.Fatalf("GenerateToken returned %v", err)
	}
	if token == "" {
		t.Fatal("token is empty")
	}

	agentID, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken returned %v", err)
	}
	if agentID != "P01" {
		t.Errorf("agent id = %q, want P01", agentID)
	}
}

func TestValidateToken_RejectsForeignSecret(t *testing.T) {
	minted, err := NewService("secret-a").GenerateToken(models.SenderRoleReferee, "R01")
	if err != nil {
		t.Fatalf("GenerateToken returned %v", err)
	}

	if _, err := NewService("secret-b").ValidateToken(minted); err == nil {
		t.Error("token minted under another secret should be rejected")
	}
	if _, err := NewService("secret-a").ValidateToken("not.a.jwt"); err == nil {
		t.Error("garbage token should be rejected")
	}
}

func TestTokensDifferPerAgent(t *testing.T) {
	svc := NewService("test-secret")
	a, _ := svc.GenerateToken(models.SenderRolePlayer, "P01")
	b, _ := svc.GenerateToken(models.SenderRolePlayer, "P02")
	if a == b {
		t.Error("distinct agents should get distinct tokens")
	}
}

func TestOperatorKey(t *testing.T) {
	svc := NewService("test-secret")
	hash, err := svc.HashOperatorKey("hunter2")
	if err != nil {
		t.Fatalf("HashOperatorKey returned %v", err)
	}
	if !svc.CheckOperatorKey("hunter2", hash) {
		t.Error("correct key rejected")
	}
	if svc.CheckOperatorKey("wrong", hash) {
		t.Error("wrong key accepted")
	}
}

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()
	if len(a) != 32 {
		t.Errorf("id length = %d, want 32 hex chars", len(a))
	}
	if a == b {
		t.Error("ids should be unique")
	}
}
