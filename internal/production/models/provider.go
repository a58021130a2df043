package models

// Collaborator request/result shapes. Adapters normalize external responses
// into these types; the orchestration core never branches on a wire format.

// SceneDraft is one scene as proposed by brief analysis, before it becomes
// a tracked Scene.
type SceneDraft struct {
	VisualDescription string `json:"visual_description"`
	TimestampStart    string `json:"timestamp_start"`
	TimestampEnd      string `json:"timestamp_end"`
}

type AnalyzeRequest struct {
	Concept       string
	LengthSeconds int
	Orientation   Orientation
}

type AnalyzeResult struct {
	Scenes []SceneDraft
	Prompt string
	Usage  Usage
}

type ImageRequest struct {
	Prompt         string
	Orientation    Orientation
	ReferenceImage string // durable ref, optional
}

type ImageResult struct {
	Data     []byte
	MIMEType string
	Usage    Usage
}

type VideoJobRequest struct {
	Prompt          string
	DurationSeconds int
	Seed            int64
	AspectRatio     Orientation
	ImageRef        string // durable ref, optional
}
