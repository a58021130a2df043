package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/romariotrain/studio-platform/internal/production/jobref"
)

type UploadStatus string

const (
	UploadPending UploadStatus = "pending"
	UploadReady   UploadStatus = "ready"
	UploadFailed  UploadStatus = "failed"
)

// CompressedVariant tracks one transcode of an upload to a target resolution.
// One variant exists per (upload, resolution); the embedded job reference
// enforces dispatch-once for that pair.
type CompressedVariant struct {
	Resolution    string     `json:"resolution"`
	Job           jobref.Ref `json:"job"`
	ChildUploadID *uuid.UUID `json:"child_upload_id,omitempty"`
}

type VariantList []CompressedVariant

func (v VariantList) Value() (driver.Value, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v)
}

func (v *VariantList) Scan(src any) error {
	return scanJSON(src, v, "variants")
}

// ByResolution returns the variant tracked for a resolution, or nil.
func (v VariantList) ByResolution(resolution string) *CompressedVariant {
	for i := range v {
		if v[i].Resolution == resolution {
			return &v[i]
		}
	}
	return nil
}

// Upload is a user-provided asset. A successful compression spawns a child
// Upload referencing the transcoded output; the child is a first-class asset
// linked back through ParentID, never re-parented.
type Upload struct {
	ID         uuid.UUID    `db:"id"`
	FileName   string       `db:"file_name"`
	ObjectURI  string       `db:"object_uri"`
	SizeBytes  int64        `db:"size_bytes"`
	Status     UploadStatus `db:"status"`
	Variants   VariantList  `db:"variants"`
	ParentID   *uuid.UUID   `db:"parent_id"`
	SignedURLs SignedURLMap `db:"signed_urls"`
	CreatedAt  time.Time    `db:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at"`
}

func (u *Upload) Clone() *Upload {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Variants = append(VariantList(nil), u.Variants...)
	if u.SignedURLs != nil {
		cp.SignedURLs = make(SignedURLMap, len(u.SignedURLs))
		for k, v := range u.SignedURLs {
			cp.SignedURLs[k] = v
		}
	}
	if u.ParentID != nil {
		id := *u.ParentID
		cp.ParentID = &id
	}
	return &cp
}
