package storage

import "time"

// Identity statuses
const (
	IdentityStatusActive = "active"
)

// Certificate statuses
const (
	CertStatusActive  = "active"
	CertStatusExpired = "expired"
	CertStatusRevoked = "revoked"
)

// Identity is a registered user/entity uniquely keyed by email. The
// email is the natural key: the store enforces at most one record per
// email via a conditional write, never a read-then-write check.
type Identity struct {
	IdentityID   string `json:"identityId" dynamodbav:"identityId"`
	Email        string `json:"email" dynamodbav:"email"`
	DisplayName  string `json:"displayName" dynamodbav:"displayName"`
	AccountType  string `json:"accountType" dynamodbav:"accountType"`
	RegisteredAt string `json:"registeredAt" dynamodbav:"registeredAt"`
	Status       string `json:"status" dynamodbav:"status"`
	LastAccessAt string `json:"lastAccessAt" dynamodbav:"lastAccessAt"`
}

// Certificate is an issued, time-bounded credential bound to an
// Identity. Timestamps are stored as RFC3339Nano UTC strings so the
// integrity fingerprint can be recomputed byte-for-byte from stored
// fields. Expiry is derived from ExpiresAt at read time; records are
// never deleted.
type Certificate struct {
	CertificateID        string `json:"certificateId" dynamodbav:"certificateId"`
	OwnerIdentityID      string `json:"identityId" dynamodbav:"identityId"`
	CertificateType      string `json:"certificateType" dynamodbav:"certificateType"`
	IssuedAt             string `json:"issuedAt" dynamodbav:"issuedAt"`
	ExpiresAt            string `json:"expiresAt" dynamodbav:"expiresAt"`
	IntegrityFingerprint string `json:"-" dynamodbav:"integrityFingerprint"`
	Status               string `json:"status" dynamodbav:"status"`
	ValidationAttempts   int64  `json:"validationAttempts" dynamodbav:"validationAttempts"`
}

// FormatTime encodes a timestamp the way store records carry them.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime decodes a store timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
