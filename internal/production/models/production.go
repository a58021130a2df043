package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/romariotrain/studio-platform/internal/production/jobref"
)

type Status string

const (
	DraftStatus      Status = "draft"
	AnalyzingStatus  Status = "analyzing"
	ScriptedStatus   Status = "scripted"
	GeneratingStatus Status = "generating"
	StitchingStatus  Status = "stitching"
	CompletedStatus  Status = "completed"
	FailedStatus     Status = "failed"
)

type SceneStatus string

const (
	ScenePendingStatus    SceneStatus = "pending"
	SceneGeneratingStatus SceneStatus = "generating"
	SceneCompletedStatus  SceneStatus = "completed"
	SceneFailedStatus     SceneStatus = "failed"
)

type Orientation string

const (
	Landscape Orientation = "16:9"
	Portrait  Orientation = "9:16"
)

// Scene is one shot of the production. Scenes are embedded in the owning
// production document as an ordered list; a scene is never persisted on its
// own. OperationName holds the outstanding video generation handle: presence
// means "dispatched, not yet resolved".
type Scene struct {
	ID                uuid.UUID   `json:"id"`
	VisualDescription string      `json:"visual_description"`
	TimestampStart    string      `json:"timestamp_start"`
	TimestampEnd      string      `json:"timestamp_end"`
	Status            SceneStatus `json:"status"`
	OperationName     string      `json:"operation_name,omitempty"`
	GeneratedPrompt   string      `json:"generated_prompt,omitempty"`
	ThumbnailURL      string      `json:"thumbnail_url,omitempty"`
	VideoURL          string      `json:"video_url,omitempty"`
	ErrorMessage      string      `json:"error_message,omitempty"`
	CostUSD           float64     `json:"cost_usd,omitempty"`
}

// SceneList is the ordered scenes column. Order is render and stitch
// sequencing order and must be preserved as stored.
type SceneList []Scene

func (s SceneList) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *SceneList) Scan(src any) error {
	return scanJSON(src, s, "scenes")
}

// SignedURL is one cached time-limited URL for a durable reference.
type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignedURLMap caches signed URLs by durable reference. It lives on the
// owning document so re-signing cost is shared across all readers, and it is
// never exposed to external callers.
type SignedURLMap map[string]SignedURL

func (m SignedURLMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *SignedURLMap) Scan(src any) error {
	return scanJSON(src, m, "signed_urls")
}

// StitchRef wraps jobref.Ref so the stitch job reference can live in its own
// jsonb column. The handle inside is kept after resolution as an audit trail.
type StitchRef struct {
	jobref.Ref
}

func (r *StitchRef) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

func (r *StitchRef) Scan(src any) error {
	if src == nil {
		return nil
	}
	return scanJSON(src, r, "stitch_job")
}

// Usage is the billing attributed to a single collaborator call.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	ModelName    string  `json:"model_name"`
	CostUSD      float64 `json:"cost_usd"`
}

// Production is the top-level entity. The document store owns it exclusively;
// the orchestration core never holds a copy across requests.
type Production struct {
	ID            uuid.UUID    `db:"id"`
	Title         string       `db:"title"`
	Concept       string       `db:"concept"`
	LengthSeconds int          `db:"length_seconds"`
	Orientation   Orientation  `db:"orientation"`
	Status        Status       `db:"status"`
	Scenes        SceneList    `db:"scenes"`
	FinalVideoURL string       `db:"final_video_url"`
	StitchJob     *StitchRef   `db:"stitch_job"`
	TotalCostUSD  float64      `db:"total_cost_usd"`
	SignedURLs    SignedURLMap `db:"signed_urls"`
	ErrorMessage  string       `db:"error_message"`
	Archived      bool         `db:"archived"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

// SceneIndex returns the position of a scene in the ordered list.
func (p *Production) SceneIndex(sceneID uuid.UUID) (int, error) {
	for i := range p.Scenes {
		if p.Scenes[i].ID == sceneID {
			return i, nil
		}
	}
	return 0, fmt.Errorf("scene %s: %w", sceneID, ErrNotFound)
}

// Clone makes a deep copy so stored documents cannot be mutated through
// previously returned pointers.
func (p *Production) Clone() *Production {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Scenes = append(SceneList(nil), p.Scenes...)
	if p.SignedURLs != nil {
		cp.SignedURLs = make(SignedURLMap, len(p.SignedURLs))
		for k, v := range p.SignedURLs {
			cp.SignedURLs[k] = v
		}
	}
	if p.StitchJob != nil {
		ref := *p.StitchJob
		cp.StitchJob = &ref
	}
	return &cp
}

func scanJSON(src, dst any, what string) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("scan %s: %w", what, err)
		}
		return nil
	case string:
		if v == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(v), dst); err != nil {
			return fmt.Errorf("scan %s: %w", what, err)
		}
		return nil
	default:
		return fmt.Errorf("scan %s: unsupported source %T", what, src)
	}
}
