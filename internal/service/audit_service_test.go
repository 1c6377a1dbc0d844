package service

import (
	"context"
	"strings"
	"testing"
)

func TestAuditService_Log(t *testing.T) {
	repo := NewMockAuditRepository()
	svc := NewAuditService(repo)

	userID := int64(7)
	entityID := int64(42)
	meta := RequestMeta{IPAddress: "10.0.0.1", UserAgent: "curl/8.0"}

	err := svc.Log(context.Background(), nil, &userID, "trade_executed", "trade", &entityID,
		nil, map[string]string{"status": "EXECUTED"}, meta)
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}

	entry := repo.entries[0]
	if entry.Action != "trade_executed" || entry.EntityType != "trade" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.UserID == nil || *entry.UserID != 7 {
		t.Error("user id not recorded")
	}
	if entry.IPAddress != "10.0.0.1" || entry.UserAgent != "curl/8.0" {
		t.Error("request metadata not recorded")
	}
	if entry.OldValues != nil {
		t.Error("nil old values must stay nil")
	}
	if !strings.Contains(string(entry.NewValues), `"status":"EXECUTED"`) {
		t.Errorf("new values not serialized: %s", entry.NewValues)
	}
}

func TestAuditService_MarshalError(t *testing.T) {
	repo := NewMockAuditRepository()
	svc := NewAuditService(repo)

	// Каналы не сериализуются в JSON
	err := svc.Log(context.Background(), nil, nil, "x", "y", nil, nil, make(chan int), RequestMeta{})
	if err == nil {
		t.Error("expected marshal error")
	}
	if len(repo.entries) != 0 {
		t.Error("entry must not be appended on marshal failure")
	}
}
