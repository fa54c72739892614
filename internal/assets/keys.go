package assets

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role names the logical function of an asset within a pipeline run. It
// selects both the local scratch directory and the durable key prefix.
type Role string

const (
	RoleSource    Role = "source"
	RoleNoBg      Role = "no_bg"
	RoleGenerated Role = "generated"
	RoleOriginal  Role = "original"
	RoleEdited    Role = "edited"
)

// localDir maps a role onto its scratch subdirectory. Background-removed
// variants share a directory regardless of which pipeline produced them.
func localDir(role Role) string {
	switch role {
	case RoleNoBg, RoleEdited:
		return "removed_bg"
	case RoleGenerated:
		return "generated"
	default:
		return "source"
	}
}

const keyTimestampLayout = "20060102_150405"

// KeySet derives the durable object keys for one pipeline run. The timestamp
// and run nonce are fixed at construction so that retries within a run reuse
// the same keys, while concurrent runs for the same product in the same
// second still produce distinct keys.
type KeySet struct {
	productID string
	stamp     string
	nonce     string
}

// NewKeySet fixes the timestamp and nonce for a run.
func NewKeySet(productID string) KeySet {
	return KeySet{
		productID: productID,
		stamp:     time.Now().UTC().Format(keyTimestampLayout),
		nonce:     strings.SplitN(uuid.NewString(), "-", 2)[0],
	}
}

// Key returns products/{product_id}/{role}_{timestamp}_{nonce}.jpg.
func (k KeySet) Key(role Role) string {
	return fmt.Sprintf("products/%s/%s_%s_%s.jpg", k.productID, role, k.stamp, k.nonce)
}

// IndexedKey returns products/{product_id}/{role}_{timestamp}_{nonce}_{idx}.jpg
// for assets produced in an ordered sequence.
func (k KeySet) IndexedKey(role Role, idx int) string {
	return fmt.Sprintf("products/%s/%s_%s_%s_%d.jpg", k.productID, role, k.stamp, k.nonce, idx)
}
