package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/romariotrain/studio-platform/internal/production/models"
	"github.com/romariotrain/studio-platform/internal/production/repository"
	"github.com/romariotrain/studio-platform/internal/production/service"
	"github.com/romariotrain/studio-platform/internal/production/signing"
)

type staticSigner struct{}

func (staticSigner) SignedURL(_ context.Context, ref string, _ time.Duration) (string, time.Time, error) {
	return "https://signed.example/" + ref, time.Now().Add(time.Hour), nil
}

type testServer struct {
	router http.Handler
	repo   *repository.MemoryRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := repository.NewMemoryRepository()
	svc := service.New(service.Deps{
		Repo:     repo,
		Uploads:  repository.NewMemoryUploadRepository(),
		Resolver: signing.NewResolver(staticSigner{}, time.Hour, 10*time.Minute),
		Bucket:   "test-bucket",
		Logger:   zerolog.Nop(),
	})
	return &testServer{
		router: NewRouter(New(svc)),
		repo:   repo,
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateProduction(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/productions",
		`{"title":"teaser","concept":"three quick cuts","length_seconds":20,"orientation":"16:9"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decode[ProductionResponse](t, rec)
	require.NotEqual(t, uuid.Nil, resp.ID)
	require.Equal(t, "draft", resp.Status)
	require.Equal(t, "16:9", resp.Orientation)
	require.NotNil(t, resp.Scenes)
}

func TestCreateProduction_BadRequests(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/productions", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/productions", `{"title":"x","length_seconds":20}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/productions", `{}`)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetProduction(t *testing.T) {
	ts := newTestServer(t)

	created := decode[ProductionResponse](t, ts.do(t, http.MethodPost, "/productions",
		`{"title":"teaser","concept":"c","length_seconds":20}`))

	rec := ts.do(t, http.MethodGet, "/productions/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ProductionResponse](t, rec)
	require.Equal(t, created.ID, got.ID)

	rec = ts.do(t, http.MethodGet, "/productions/"+uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/productions/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProduction_ResolvesSignedURLs(t *testing.T) {
	ts := newTestServer(t)

	sceneID := uuid.New()
	p := &models.Production{
		ID:     uuid.New(),
		Title:  "t",
		Status: models.CompletedStatus,
		Scenes: models.SceneList{{
			ID:           sceneID,
			Status:       models.SceneCompletedStatus,
			VideoURL:     "gs://test-bucket/clip.mp4",
			ThumbnailURL: "gs://test-bucket/frame.png",
		}},
		FinalVideoURL: "gs://test-bucket/final.mp4",
	}
	require.NoError(t, ts.repo.Create(context.Background(), p))

	rec := ts.do(t, http.MethodGet, "/productions/"+p.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[ProductionResponse](t, rec)
	require.Equal(t, "https://signed.example/gs://test-bucket/final.mp4", got.FinalVideoURL)
	require.Equal(t, "https://signed.example/gs://test-bucket/clip.mp4", got.Scenes[0].VideoURL)
}

func TestListProductions_ArchivedFilter(t *testing.T) {
	ts := newTestServer(t)

	created := decode[ProductionResponse](t, ts.do(t, http.MethodPost, "/productions",
		`{"title":"x","concept":"c","length_seconds":10}`))

	rec := ts.do(t, http.MethodPost, "/productions/"+created.ID.String()+"/archive", "")
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]ProductionResponse](t, ts.do(t, http.MethodGet, "/productions", ""))
	require.Empty(t, list)

	list = decode[[]ProductionResponse](t, ts.do(t, http.MethodGet, "/productions?archived=true", ""))
	require.Len(t, list, 1)

	rec = ts.do(t, http.MethodPost, "/productions/"+created.ID.String()+"/unarchive", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[[]ProductionResponse](t, ts.do(t, http.MethodGet, "/productions", ""))
	require.Len(t, list, 1)
}

func TestAnalyze_InvalidTransitionIs400(t *testing.T) {
	ts := newTestServer(t)

	p := &models.Production{ID: uuid.New(), Title: "t", Status: models.CompletedStatus}
	require.NoError(t, ts.repo.Create(context.Background(), p))

	rec := ts.do(t, http.MethodPost, "/productions/"+p.ID.String()+"/analyze", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSceneVideo_ConflictIs409(t *testing.T) {
	ts := newTestServer(t)

	sceneID := uuid.New()
	p := &models.Production{
		ID:     uuid.New(),
		Status: models.GeneratingStatus,
		Scenes: models.SceneList{{
			ID:            sceneID,
			Status:        models.SceneGeneratingStatus,
			OperationName: "operations/op-1",
		}},
	}
	require.NoError(t, ts.repo.Create(context.Background(), p))

	rec := ts.do(t, http.MethodPost,
		"/productions/"+p.ID.String()+"/scenes/"+sceneID.String()+"/video", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	body := decode[map[string]string](t, rec)
	require.Contains(t, body["error"], "operations/op-1")
}

func TestStitch_PreconditionIs400(t *testing.T) {
	ts := newTestServer(t)

	sceneID := uuid.New()
	p := &models.Production{
		ID:     uuid.New(),
		Status: models.GeneratingStatus,
		Scenes: models.SceneList{{ID: sceneID, Status: models.SceneGeneratingStatus}},
	}
	require.NoError(t, ts.repo.Create(context.Background(), p))

	rec := ts.do(t, http.MethodPost, "/productions/"+p.ID.String()+"/stitch", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[map[string]string](t, rec)
	require.Contains(t, body["error"], sceneID.String())
}

func TestUnknownRoutesAre404(t *testing.T) {
	ts := newTestServer(t)

	id := uuid.NewString()
	rec := ts.do(t, http.MethodPost, "/productions/"+id+"/explode", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/uploads/"+id+"/compress", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadRoutes_Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/uploads", `{"content_type":"video/mp4"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/uploads/"+uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/uploads/bogus", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
