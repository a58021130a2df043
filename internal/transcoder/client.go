// Package transcoder adapts the Transcoder API to the transcoding provider
// contract: ordered stitch jobs, per-resolution compression, state polling.
package transcoder

import (
	"context"
	"fmt"

	transcoderapi "google.golang.org/api/transcoder/v1"

	"github.com/romariotrain/studio-platform/internal/production/jobref"
	"github.com/romariotrain/studio-platform/internal/production/models"
)

// Preset describes one compression target. Keys follow the rendition naming
// clients use ("480p", "720p").
type Preset struct {
	Width      int64
	Height     int64
	CRF        int64
	BitrateBps int64
}

var Presets = map[string]Preset{
	"480p": {Width: 854, Height: 480, CRF: 26, BitrateBps: 2_000_000},
	"720p": {Width: 1280, Height: 720, CRF: 23, BitrateBps: 5_000_000},
}

type Client struct {
	svc    *transcoderapi.Service
	parent string
}

func NewClient(ctx context.Context, projectID, location string) (*Client, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("project id and location are required")
	}
	svc, err := transcoderapi.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("transcoder service: %w", err)
	}
	return &Client{
		svc:    svc,
		parent: fmt.Sprintf("projects/%s/locations/%s", projectID, location),
	}, nil
}

// StartStitch creates a job concatenating inputs in order into outputURI.
// The final asset lands at outputURI + "final.mp4".
func (c *Client) StartStitch(ctx context.Context, inputs []string, outputURI string, orientation models.Orientation) (string, error) {
	if len(inputs) == 0 {
		return "", fmt.Errorf("no inputs to stitch")
	}

	created, err := c.svc.Projects.Locations.Jobs.Create(c.parent, buildStitchJob(inputs, outputURI, orientation)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create stitch job: %w", err)
	}
	return created.Name, nil
}

func buildStitchJob(inputs []string, outputURI string, orientation models.Orientation) *transcoderapi.Job {
	width, height := int64(1280), int64(720)
	if orientation == models.Portrait {
		width, height = 720, 1280
	}

	jobInputs := make([]*transcoderapi.Input, 0, len(inputs))
	editList := make([]*transcoderapi.EditAtom, 0, len(inputs))
	for i, uri := range inputs {
		key := fmt.Sprintf("input%d", i)
		jobInputs = append(jobInputs, &transcoderapi.Input{Key: key, Uri: uri})
		editList = append(editList, &transcoderapi.EditAtom{
			Key:             fmt.Sprintf("atom%d", i),
			Inputs:          []string{key},
			StartTimeOffset: "0s",
		})
	}

	return &transcoderapi.Job{
		OutputUri: outputURI,
		Config: &transcoderapi.JobConfig{
			Inputs:   jobInputs,
			EditList: editList,
			ElementaryStreams: []*transcoderapi.ElementaryStream{
				{
					Key: "v1",
					VideoStream: &transcoderapi.VideoStream{
						H264: &transcoderapi.H264CodecSettings{
							BitrateBps:   5_000_000,
							FrameRate:    30,
							HeightPixels: height,
							WidthPixels:  width,
						},
					},
				},
				{
					Key: "a1",
					AudioStream: &transcoderapi.AudioStream{
						Codec:      "aac",
						BitrateBps: 128_000,
					},
				},
			},
			MuxStreams: []*transcoderapi.MuxStream{
				{Key: "final", Container: "mp4", ElementaryStreams: []string{"v1", "a1"}},
			},
		},
	}
}

// StartCompress creates a job transcoding inputURI to the preset resolution.
// The output lands at outputURI + "compressed.mp4".
func (c *Client) StartCompress(ctx context.Context, inputURI, outputURI, resolution string) (string, error) {
	preset, ok := Presets[resolution]
	if !ok {
		return "", fmt.Errorf("unsupported resolution %q: %w", resolution, models.ErrInvalidArgument)
	}

	created, err := c.svc.Projects.Locations.Jobs.Create(c.parent, buildCompressJob(inputURI, outputURI, preset)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create compress job: %w", err)
	}
	return created.Name, nil
}

func buildCompressJob(inputURI, outputURI string, preset Preset) *transcoderapi.Job {
	return &transcoderapi.Job{
		InputUri:  inputURI,
		OutputUri: outputURI,
		Config: &transcoderapi.JobConfig{
			ElementaryStreams: []*transcoderapi.ElementaryStream{
				{
					Key: "video_stream",
					VideoStream: &transcoderapi.VideoStream{
						H264: &transcoderapi.H264CodecSettings{
							HeightPixels:    preset.Height,
							WidthPixels:     preset.Width,
							BitrateBps:      preset.BitrateBps,
							FrameRate:       30,
							CrfLevel:        preset.CRF,
							RateControlMode: "crf",
							Profile:         "high",
							Preset:          "slow",
							BFrameCount:     3,
							EntropyCoder:    "cabac",
						},
					},
				},
				{
					Key: "audio_stream",
					AudioStream: &transcoderapi.AudioStream{
						Codec:      "aac",
						BitrateBps: 128_000,
					},
				},
			},
			MuxStreams: []*transcoderapi.MuxStream{
				{Key: "compressed", Container: "mp4", ElementaryStreams: []string{"video_stream", "audio_stream"}},
			},
		},
	}
}

// Poll reads job state by handle. Pure read, no side effects.
func (c *Client) Poll(ctx context.Context, name string) (jobref.Outcome, error) {
	job, err := c.svc.Projects.Locations.Jobs.Get(name).Context(ctx).Do()
	if err != nil {
		return jobref.Outcome{}, fmt.Errorf("get job %s: %w", name, err)
	}

	switch job.State {
	case "SUCCEEDED":
		return jobref.Outcome{State: jobref.Succeeded}, nil
	case "FAILED":
		msg := "transcoding failed"
		if job.Error != nil && job.Error.Message != "" {
			msg = job.Error.Message
		}
		return jobref.Outcome{State: jobref.Failed, Err: msg}, nil
	default:
		// PENDING, RUNNING и всё неизвестное считаем processing
		return jobref.Outcome{State: jobref.Processing}, nil
	}
}

// Delete drops the provider-side job. Used when a handle is abandoned; the
// work already done is not rolled back.
func (c *Client) Delete(ctx context.Context, name string) error {
	if _, err := c.svc.Projects.Locations.Jobs.Delete(name).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete job %s: %w", name, err)
	}
	return nil
}
