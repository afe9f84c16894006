package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InvitationStatus is the lifecycle state of an invitation code.
// Transitions are monotone: valid -> used, valid -> expired. Used and
// expired are terminal.
type InvitationStatus string

const (
	InvitationValid   InvitationStatus = "valid"
	InvitationUsed    InvitationStatus = "used"
	InvitationExpired InvitationStatus = "expired"
)

// InvitationCode is a single-use, time-boxed token an admin issues to
// authorize the creation of one coach account.
type InvitationCode struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CodeID    string              `bson:"codeId" json:"codeId"` // stable external identifier (uuid)
	Code      string              `bson:"code" json:"code"`     // opaque random string handed to the coach
	IssuedBy  primitive.ObjectID  `bson:"issuedBy" json:"issuedBy"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
	ExpiresAt time.Time           `bson:"expiresAt" json:"expiresAt"`
	Status    InvitationStatus    `bson:"status" json:"status"`
	UsedAt    *time.Time          `bson:"usedAt,omitempty" json:"usedAt,omitempty"`
	UsedBy    *primitive.ObjectID `bson:"usedBy,omitempty" json:"usedBy,omitempty"`
}

// IsValid reports whether the code could still be redeemed at the given
// instant. Pure predicate: observing an overdue code here does not flip
// its stored state.
func (c *InvitationCode) IsValid(now time.Time) bool {
	return c.Status == InvitationValid && !now.After(c.ExpiresAt)
}

// OverdueAt reports whether the code's window has elapsed.
func (c *InvitationCode) OverdueAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
