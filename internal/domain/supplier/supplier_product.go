package supplier

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/shared"
)

// DefaultUnchangedWindow is how long an unchanged payload stays exempt from re-processing
const DefaultUnchangedWindow = 24 * time.Hour

// SupplierProduct links one (account, external_id) pair to exactly one catalog variant
type SupplierProduct struct {
	shared.BaseEntity
	ProviderAccountID uuid.UUID
	ExternalID        string
	VariantID         uuid.UUID
	Raw               RawItem
	RawHash           string
	IsActive          bool
	LastSyncedAt      *time.Time
}

// IsUnchanged reports whether hash matches the stored hash and the link was
// synced within window of now. A non-positive window never matches.
func (sp *SupplierProduct) IsUnchanged(hash string, now time.Time, window time.Duration) bool {
	if window <= 0 || sp == nil || hash == "" || sp.RawHash != hash || sp.LastSyncedAt == nil {
		return false
	}
	return sp.LastSyncedAt.After(now.Add(-window))
}

// HashRaw returns a hex SHA-256 of the canonical JSON encoding of raw.
// Map keys are encoded in sorted order, so equal payloads hash equally.
func HashRaw(raw RawItem) string {
	if raw == nil {
		raw = RawItem{}
	}
	blob, err := json.Marshal(map[string]any(raw))
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}
