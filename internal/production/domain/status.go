package domain

import "fmt"

type Status string

const (
	Draft      Status = "draft"
	Analyzing  Status = "analyzing"
	Scripted   Status = "scripted"
	Generating Status = "generating"
	Stitching  Status = "stitching"
	Completed  Status = "completed"
	Failed     Status = "failed"
)

// CanTransition reports whether a production may move from one status to
// another. The lifecycle is one-directional; the only way out of failed is
// re-invoking the step that failed.
func CanTransition(from, to Status) bool {
	switch from {
	case Draft:
		return to == Analyzing
	case Analyzing:
		return to == Scripted || to == Failed
	case Scripted:
		return to == Generating
	case Generating:
		return to == Stitching || to == Failed
	case Stitching:
		return to == Completed || to == Failed
	case Completed:
		return false
	case Failed:
		// повторный запуск упавшего шага
		return to == Analyzing || to == Generating || to == Stitching
	default:
		return false
	}
}

func ValidateTransition(from, to Status) error {
	if from == to {
		return nil
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

type SceneStatus string

const (
	ScenePending    SceneStatus = "pending"
	SceneGenerating SceneStatus = "generating"
	SceneCompleted  SceneStatus = "completed"
	SceneFailed     SceneStatus = "failed"
)

// CanTransitionScene reports whether a scene may move between statuses.
// Re-entering generating from a terminal state is an explicit regenerate,
// requested by the user, never automatic.
func CanTransitionScene(from, to SceneStatus) bool {
	switch from {
	case ScenePending:
		return to == SceneGenerating
	case SceneGenerating:
		return to == SceneCompleted || to == SceneFailed
	case SceneCompleted:
		return to == SceneGenerating
	case SceneFailed:
		return to == SceneGenerating
	default:
		return false
	}
}

func ValidateSceneTransition(from, to SceneStatus) error {
	if from == to {
		return nil
	}
	if !CanTransitionScene(from, to) {
		return fmt.Errorf("%w: scene %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
