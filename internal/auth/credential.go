// ABOUTME: Credential resolution from bearer token to persisted tenant.
// ABOUTME: Also bcrypt hashing and comparison for tenant secrets.

package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/hireloop/hireloop-gateway/internal/store"
)

// ErrNoCredential is returned when a request carries no resolvable
// tenant credential.
var ErrNoCredential = errors.New("no tenant credential")

// Credential is a resolved tenant identity, the grant of tool access
// for the request that carried it.
type Credential struct {
	TenantID   string
	TenantName string
}

// TenantStore is what the resolver needs from persistence.
type TenantStore interface {
	GetTenant(ctx context.Context, id string) (*store.Tenant, error)
}

// Resolver turns bearer tokens into credentials.
type Resolver struct {
	verifier TokenVerifier
	tenants  TenantStore
}

// NewResolver creates a credential resolver.
func NewResolver(verifier TokenVerifier, tenants TenantStore) *Resolver {
	return &Resolver{verifier: verifier, tenants: tenants}
}

// Resolve maps a bearer token to a credential. Empty tokens, bad
// signatures and unknown tenants all yield ErrNoCredential.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Credential, error) {
	if token == "" {
		return nil, ErrNoCredential
	}
	tenantID, err := r.verifier.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCredential, err)
	}
	tenant, err := r.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoCredential
		}
		return nil, err
	}
	return &Credential{TenantID: tenant.ID, TenantName: tenant.Name}, nil
}

// HashSecret hashes a tenant secret for storage.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing secret: %w", err)
	}
	return string(hash), nil
}

// CheckSecret compares a presented secret against the stored hash.
func CheckSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
