package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// WorkerRole distinguishes extraction workers from operator tooling.
type WorkerRole string

const (
	RoleWorker   WorkerRole = "worker"
	RoleOperator WorkerRole = "operator"
)

// Worker is a registered extraction worker or operator identity. The secret
// is stored as a bcrypt hash and never leaves the service.
type Worker struct {
	ID         string     `db:"id" json:"worker_id"`
	Name       string     `db:"name" json:"name"`
	SecretHash string     `db:"secret_hash" json:"-"`
	Role       WorkerRole `db:"role" json:"role"`
	Active     bool       `db:"active" json:"active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	LastSeenAt *time.Time `db:"last_seen_at" json:"last_seen_at,omitempty"`
}

// WorkerClaims carries the authenticated worker identity through requests.
// WorkerID is the lease_holder value used by the lease coordinator.
type WorkerClaims struct {
	WorkerID string     `json:"worker_id"`
	Name     string     `json:"name"`
	Role     WorkerRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenResponse is returned by the auth token endpoint.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
