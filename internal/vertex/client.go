// Package vertex adapts the Vertex AI REST surface to the generative
// provider contract: brief analysis, still frame rendering and long-running
// video generation. Responses are normalized here; the orchestration core
// never sees the raw wire shapes.
package vertex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/romariotrain/studio-platform/internal/production/jobref"
	"github.com/romariotrain/studio-platform/internal/production/models"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Цены на токены для модели анализа (USD за токен).
const (
	inputTokenPriceUSD  = 0.00000125
	outputTokenPriceUSD = 0.00000375
	imageFlatPriceUSD   = 0.03
)

type Config struct {
	ProjectID     string
	TextLocation  string // регион для анализа и картинок, обычно "global"
	VideoLocation string // регион для Veo
	TextModel     string
	ImageModel    string
	VideoModel    string
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project id is empty")
	}
	ts, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("token source: %w", err)
	}
	return &Client{
		cfg:  cfg,
		http: oauth2.NewClient(ctx, ts),
	}, nil
}

// NewClientWithHTTP wires a pre-built HTTP client; tests use it to avoid
// real credentials.
func NewClientWithHTTP(cfg Config, httpClient *http.Client) *Client {
	return &Client{cfg: cfg, http: httpClient}
}

// analysisSchema constrains the model to an ordered scene list.
var analysisSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"scenes": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"visual_description": map[string]any{"type": "STRING"},
					"timestamp_start":    map[string]any{"type": "STRING"},
					"timestamp_end":      map[string]any{"type": "STRING"},
				},
				"required": []string{"visual_description", "timestamp_start", "timestamp_end"},
			},
		},
	},
	"required": []string{"scenes"},
}

// Analyze breaks a creative brief into an ordered scene list.
func (c *Client) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResult, error) {
	prompt := fmt.Sprintf(
		"Act as a professional film director and scriptwriter. "+
			"Break the following creative brief into a scene-by-scene cinematic script. "+
			"Total length: %d seconds. Orientation: %s. Each scene must be between 2 and 8 seconds. "+
			"Creative Brief: %s "+
			"Return a JSON list of scenes following the requested structure.",
		req.LengthSeconds, req.Orientation, req.Concept,
	)

	body := map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": []map[string]any{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"responseMimeType": "application/json",
			"responseSchema":   analysisSchema,
		},
	}

	var resp generateContentResponse
	if err := c.post(ctx, c.modelURL(c.cfg.TextLocation, c.cfg.TextModel, "generateContent"), body, &resp); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	text := resp.firstText()
	if text == "" {
		return nil, fmt.Errorf("analyze: empty model response")
	}

	var parsed struct {
		Scenes []models.SceneDraft `json:"scenes"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("analyze: parse scenes: %w", err)
	}

	usage := models.Usage{
		InputTokens:  resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		ModelName:    c.cfg.TextModel,
	}
	usage.CostUSD = float64(usage.InputTokens)*inputTokenPriceUSD +
		float64(usage.OutputTokens)*outputTokenPriceUSD

	return &models.AnalyzeResult{Scenes: parsed.Scenes, Prompt: prompt, Usage: usage}, nil
}

// RenderImage produces a still frame for a scene prompt. The caller stores
// the returned bytes; the adapter does not touch the object store.
func (c *Client) RenderImage(ctx context.Context, req models.ImageRequest) (*models.ImageResult, error) {
	parts := []map[string]any{}
	if req.ReferenceImage != "" {
		parts = append(parts,
			map[string]any{"fileData": map[string]any{"fileUri": req.ReferenceImage, "mimeType": "image/png"}},
			map[string]any{"text": "Use the above reference image as a style guide. " + req.Prompt},
		)
	} else {
		parts = append(parts, map[string]any{"text": req.Prompt})
	}

	body := map[string]any{
		"contents": []map[string]any{{"role": "user", "parts": parts}},
		"generationConfig": map[string]any{
			"responseModalities": []string{"IMAGE"},
			"imageConfig":        map[string]any{"aspectRatio": req.Orientation},
		},
	}

	var resp generateContentResponse
	if err := c.post(ctx, c.modelURL(c.cfg.TextLocation, c.cfg.ImageModel, "generateContent"), body, &resp); err != nil {
		return nil, fmt.Errorf("render image: %w", err)
	}

	data, mimeType := resp.firstInlineData()
	if len(data) == 0 {
		return nil, fmt.Errorf("render image: no image in response")
	}

	return &models.ImageResult{
		Data:     data,
		MIMEType: mimeType,
		Usage:    models.Usage{ModelName: c.cfg.ImageModel, CostUSD: imageFlatPriceUSD},
	}, nil
}

// StartVideoJob dispatches video generation and returns the operation handle.
// The caller must persist the handle before treating the dispatch as done.
func (c *Client) StartVideoJob(ctx context.Context, req models.VideoJobRequest) (string, error) {
	instance := map[string]any{"prompt": req.Prompt}
	if req.ImageRef != "" {
		instance["image"] = map[string]any{"gcsUri": req.ImageRef, "mimeType": "image/png"}
	}

	body := map[string]any{
		"instances": []map[string]any{instance},
		"parameters": map[string]any{
			"durationSeconds": req.DurationSeconds,
			"seed":            req.Seed,
			"aspectRatio":     req.AspectRatio,
			"sampleCount":     1,
		},
	}

	var resp struct {
		Name string `json:"name"`
	}
	if err := c.post(ctx, c.modelURL(c.cfg.VideoLocation, c.cfg.VideoModel, "predictLongRunning"), body, &resp); err != nil {
		return "", fmt.Errorf("start video job: %w", err)
	}
	if resp.Name == "" {
		return "", fmt.Errorf("start video job: no operation name returned")
	}
	return resp.Name, nil
}

// PollVideoJob reads the operation status by handle. Pure read: no side
// effects on the external system. A done operation without a video URI is
// reported as Succeeded with empty Output so callers can tell "done, nothing
// produced" apart from both "still running" and "errored".
func (c *Client) PollVideoJob(ctx context.Context, handle string) (jobref.Outcome, error) {
	body := map[string]any{"operationName": handle}

	var resp struct {
		Done  bool `json:"done"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Response struct {
			Videos []struct {
				GcsURI string `json:"gcsUri"`
			} `json:"videos"`
			GeneratedVideos []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedVideos"`
		} `json:"response"`
	}
	if err := c.post(ctx, c.modelURL(c.cfg.VideoLocation, c.cfg.VideoModel, "fetchPredictOperation"), body, &resp); err != nil {
		return jobref.Outcome{}, fmt.Errorf("poll video job: %w", err)
	}

	if !resp.Done {
		return jobref.Outcome{State: jobref.Processing}, nil
	}
	if resp.Error != nil {
		return jobref.Outcome{
			State: jobref.Failed,
			Err:   fmt.Sprintf("operation failed (code %d): %s", resp.Error.Code, resp.Error.Message),
		}, nil
	}

	uri := ""
	if len(resp.Response.Videos) > 0 {
		uri = resp.Response.Videos[0].GcsURI
	} else if len(resp.Response.GeneratedVideos) > 0 {
		uri = resp.Response.GeneratedVideos[0].Video.URI
	}
	return jobref.Outcome{State: jobref.Succeeded, Output: uri}, nil
}

func (c *Client) modelURL(location, model, verb string) string {
	host := "aiplatform.googleapis.com"
	if location != "" && location != "global" {
		host = location + "-aiplatform.googleapis.com"
	}
	loc := location
	if loc == "" {
		loc = "global"
	}
	return fmt.Sprintf("https://%s/v1/projects/%s/locations/%s/publishers/google/models/%s:%s",
		host, c.cfg.ProjectID, loc, model, verb)
}

func (c *Client) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vertex returned %d: %s", resp.StatusCode, truncate(string(data), 512))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MIMEType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (r *generateContentResponse) firstText() string {
	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}

func (r *generateContentResponse) firstInlineData() ([]byte, string) {
	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					continue
				}
				return data, part.InlineData.MIMEType
			}
		}
	}
	return nil, ""
}
