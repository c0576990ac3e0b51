// ABOUTME: Tests for tenant registry persistence.
// ABOUTME: Creation, lookup, and duplicate name rejection.

package store

import (
	"context"
	"errors"
	"testing"
)

func TestCreateAndGetTenant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tenant := &Tenant{Name: "acme-hr", SecretHash: "$2a$10$fakehash"}
	if err := s.CreateTenant(ctx, tenant); err != nil {
		t.Fatalf("CreateTenant failed: %v", err)
	}
	if tenant.ID == "" {
		t.Fatal("expected store to assign tenant id")
	}

	got, err := s.GetTenant(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("GetTenant failed: %v", err)
	}
	if got.Name != "acme-hr" || got.SecretHash != "$2a$10$fakehash" {
		t.Errorf("unexpected tenant: %+v", got)
	}
}

func TestCreateTenant_DuplicateName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateTenant(ctx, &Tenant{Name: "acme-hr", SecretHash: "h"}); err != nil {
		t.Fatalf("CreateTenant failed: %v", err)
	}
	err := s.CreateTenant(ctx, &Tenant{Name: "acme-hr", SecretHash: "h"})
	if !errors.Is(err, ErrDuplicateTenant) {
		t.Errorf("expected ErrDuplicateTenant, got %v", err)
	}
}

func TestGetTenant_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetTenant(context.Background(), "tenant-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateTenant_RequiresName(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateTenant(context.Background(), &Tenant{SecretHash: "h"}); err == nil {
		t.Error("expected error for missing tenant name")
	}
}
