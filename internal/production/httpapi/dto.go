package httpapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/romariotrain/studio-platform/internal/production/models"
)

type CreateProductionRequest struct {
	Title         string             `json:"title"`
	Concept       string             `json:"concept"`
	LengthSeconds int                `json:"length_seconds"`
	Orientation   models.Orientation `json:"orientation"`
}

type InitUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

type CompressRequest struct {
	Resolution string `json:"resolution"`
}

type SceneResponse struct {
	ID                uuid.UUID `json:"id"`
	VisualDescription string    `json:"visual_description"`
	TimestampStart    string    `json:"timestamp_start"`
	TimestampEnd      string    `json:"timestamp_end"`
	Status            string    `json:"status"`
	GeneratedPrompt   string    `json:"generated_prompt,omitempty"`
	ThumbnailURL      string    `json:"thumbnail_url,omitempty"`
	VideoURL          string    `json:"video_url,omitempty"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	CostUSD           float64   `json:"cost_usd,omitempty"`
}

type StitchJobResponse struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

type ProductionResponse struct {
	ID            uuid.UUID          `json:"id"`
	Title         string             `json:"title"`
	Concept       string             `json:"concept"`
	LengthSeconds int                `json:"length_seconds"`
	Orientation   string             `json:"orientation"`
	Status        string             `json:"status"`
	Scenes        []SceneResponse    `json:"scenes"`
	FinalVideoURL string             `json:"final_video_url,omitempty"`
	StitchJob     *StitchJobResponse `json:"stitch_job,omitempty"`
	TotalCostUSD  float64            `json:"total_cost_usd"`
	ErrorMessage  string             `json:"error_message,omitempty"`
	Archived      bool               `json:"archived"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type VariantResponse struct {
	Resolution    string     `json:"resolution"`
	State         string     `json:"state"`
	ChildUploadID *uuid.UUID `json:"child_upload_id,omitempty"`
	Error         string     `json:"error,omitempty"`
}

type UploadResponse struct {
	ID        uuid.UUID         `json:"id"`
	FileName  string            `json:"file_name"`
	URL       string            `json:"url,omitempty"`
	SizeBytes int64             `json:"size_bytes"`
	Status    string            `json:"status"`
	Variants  []VariantResponse `json:"variants"`
	ParentID  *uuid.UUID        `json:"parent_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type InitUploadResponse struct {
	Upload    UploadResponse `json:"upload"`
	UploadURL string         `json:"upload_url"`
}

func toSceneResponse(sc *models.Scene) SceneResponse {
	return SceneResponse{
		ID:                sc.ID,
		VisualDescription: sc.VisualDescription,
		TimestampStart:    sc.TimestampStart,
		TimestampEnd:      sc.TimestampEnd,
		Status:            string(sc.Status),
		GeneratedPrompt:   sc.GeneratedPrompt,
		ThumbnailURL:      sc.ThumbnailURL,
		VideoURL:          sc.VideoURL,
		ErrorMessage:      sc.ErrorMessage,
		CostUSD:           sc.CostUSD,
	}
}

func toProductionResponse(p *models.Production) ProductionResponse {
	scenes := make([]SceneResponse, 0, len(p.Scenes))
	for i := range p.Scenes {
		scenes = append(scenes, toSceneResponse(&p.Scenes[i]))
	}
	resp := ProductionResponse{
		ID:            p.ID,
		Title:         p.Title,
		Concept:       p.Concept,
		LengthSeconds: p.LengthSeconds,
		Orientation:   string(p.Orientation),
		Status:        string(p.Status),
		Scenes:        scenes,
		FinalVideoURL: p.FinalVideoURL,
		TotalCostUSD:  p.TotalCostUSD,
		ErrorMessage:  p.ErrorMessage,
		Archived:      p.Archived,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.StitchJob != nil && p.StitchJob.Handle != "" {
		resp.StitchJob = &StitchJobResponse{
			State: string(p.StitchJob.State),
			Error: p.StitchJob.Error,
		}
	}
	return resp
}

func toUploadResponse(u *models.Upload) UploadResponse {
	variants := make([]VariantResponse, 0, len(u.Variants))
	for i := range u.Variants {
		v := &u.Variants[i]
		variants = append(variants, VariantResponse{
			Resolution:    v.Resolution,
			State:         string(v.Job.State),
			ChildUploadID: v.ChildUploadID,
			Error:         v.Job.Error,
		})
	}
	return UploadResponse{
		ID:        u.ID,
		FileName:  u.FileName,
		URL:       u.ObjectURI,
		SizeBytes: u.SizeBytes,
		Status:    string(u.Status),
		Variants:  variants,
		ParentID:  u.ParentID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
