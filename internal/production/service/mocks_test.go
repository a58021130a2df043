package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/romariotrain/studio-platform/internal/production/jobref"
	"github.com/romariotrain/studio-platform/internal/production/models"
)

type GenerativeMock struct {
	mock.Mock
}

func (m *GenerativeMock) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResult, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*models.AnalyzeResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *GenerativeMock) RenderImage(ctx context.Context, req models.ImageRequest) (*models.ImageResult, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*models.ImageResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *GenerativeMock) StartVideoJob(ctx context.Context, req models.VideoJobRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *GenerativeMock) PollVideoJob(ctx context.Context, handle string) (jobref.Outcome, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(jobref.Outcome), args.Error(1)
}

type TranscoderMock struct {
	mock.Mock
}

func (m *TranscoderMock) StartStitch(ctx context.Context, inputs []string, outputURI string, orientation models.Orientation) (string, error) {
	args := m.Called(ctx, inputs, outputURI, orientation)
	return args.String(0), args.Error(1)
}

func (m *TranscoderMock) StartCompress(ctx context.Context, inputURI, outputURI, resolution string) (string, error) {
	args := m.Called(ctx, inputURI, outputURI, resolution)
	return args.String(0), args.Error(1)
}

func (m *TranscoderMock) Poll(ctx context.Context, name string) (jobref.Outcome, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(jobref.Outcome), args.Error(1)
}

func (m *TranscoderMock) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

type ObjectStoreMock struct {
	mock.Mock
}

func (m *ObjectStoreMock) Put(ctx context.Context, data []byte, path, contentType string) (string, error) {
	args := m.Called(ctx, data, path, contentType)
	return args.String(0), args.Error(1)
}

func (m *ObjectStoreMock) SignedPutURL(ctx context.Context, path, contentType string, ttl time.Duration) (string, string, error) {
	args := m.Called(ctx, path, contentType, ttl)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *ObjectStoreMock) Exists(ctx context.Context, ref string) (bool, error) {
	args := m.Called(ctx, ref)
	return args.Bool(0), args.Error(1)
}

func (m *ObjectStoreMock) Size(ctx context.Context, ref string) (int64, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(int64), args.Error(1)
}

// signerStub satisfies signing.Signer without a real bucket.
type signerStub struct {
	url       string
	expiresAt time.Time
}

func (s signerStub) SignedURL(_ context.Context, ref string, _ time.Duration) (string, time.Time, error) {
	return s.url + ref, s.expiresAt, nil
}
