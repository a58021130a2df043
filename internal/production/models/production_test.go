package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/romariotrain/studio-platform/internal/production/jobref"
)

func TestSceneIndex(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	p := &Production{Scenes: SceneList{{ID: first}, {ID: second}}}

	idx, err := p.SceneIndex(second)
	require.NoError(t, err)
	require.Equal(t, 1, idx)

	_, err = p.SceneIndex(uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProductionClone_IsDeep(t *testing.T) {
	p := &Production{
		ID:         uuid.New(),
		Scenes:     SceneList{{ID: uuid.New(), Status: ScenePendingStatus}},
		SignedURLs: SignedURLMap{"gs://b/a": {URL: "https://x"}},
		StitchJob:  &StitchRef{Ref: *jobref.New("jobs/j-1", "gs://b/out/")},
	}

	cp := p.Clone()
	cp.Scenes[0].Status = SceneFailedStatus
	cp.SignedURLs["gs://b/a"] = SignedURL{URL: "https://y"}
	cp.StitchJob.Resolve(jobref.Outcome{State: jobref.Failed, Err: "x"})

	require.Equal(t, ScenePendingStatus, p.Scenes[0].Status)
	require.Equal(t, "https://x", p.SignedURLs["gs://b/a"].URL)
	require.Equal(t, jobref.Processing, p.StitchJob.State)

	var nilP *Production
	require.Nil(t, nilP.Clone())
}

func TestStitchRef_ScanRoundTrip(t *testing.T) {
	ref := &StitchRef{Ref: *jobref.New("jobs/j-1", "gs://b/out/")}
	v, err := ref.Value()
	require.NoError(t, err)

	var back StitchRef
	require.NoError(t, back.Scan(v))
	require.Equal(t, "jobs/j-1", back.Handle)
	require.Equal(t, jobref.Processing, back.State)

	// NULL колонка
	var empty StitchRef
	require.NoError(t, empty.Scan(nil))
}

func TestProductionStatusChanged_Marshal(t *testing.T) {
	productionID := uuid.New()
	e := NewProductionStatusChanged(productionID, GeneratingStatus, StitchingStatus)

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Equal(t, productionID.String(), payload["production_id"])
	require.Equal(t, "generating", payload["from"])
	require.Equal(t, "stitching", payload["to"])
	require.Equal(t, "ProductionStatusChanged", e.EventType())
	require.Equal(t, productionID, e.AggregateID())
}

func TestSceneStatusChanged_Marshal(t *testing.T) {
	productionID, sceneID := uuid.New(), uuid.New()
	e := NewSceneStatusChanged(productionID, sceneID, SceneGeneratingStatus, SceneCompletedStatus)

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Equal(t, sceneID.String(), payload["scene_id"])
	require.Equal(t, "completed", payload["to"])
	require.Equal(t, productionID, e.AggregateID())
}
