package model

// Stage is a step of the release pipeline.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageIncrement Stage = "increment"
	StagePush      Stage = "push"
	StagePackage   Stage = "package"
	StagePublish   Stage = "publish"
	StageDone      Stage = "done"
)

// Result summarizes a release run. Stage is the last stage entered; on
// failure it is the stage that failed.
type Result struct {
	Release   *Release
	Stage     Stage
	Changes   []StagedChange
	Artifacts []string
	Published []string
	DryRun    bool
}
