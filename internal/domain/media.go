package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaAsset stores metadata about a demo video a coach uploaded for an
// exercise template. The actual file resides in S3.
type MediaAsset struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TemplateID  primitive.ObjectID `bson:"templateId" json:"templateId"` // Link back to the template
	CoachID     primitive.ObjectID `bson:"coachId" json:"coachId"`       // Uploader (denormalized)
	S3ObjectKey string             `bson:"s3ObjectKey" json:"-"`         // Unique key in the S3 bucket - internal use
	FileName    string             `bson:"fileName" json:"fileName"`     // Original filename provided by coach
	ContentType string             `bson:"contentType" json:"contentType"`
	Size        int64              `bson:"size" json:"size"`
	UploadedAt  time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}
