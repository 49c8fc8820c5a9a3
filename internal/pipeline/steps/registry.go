// Package steps provides step definitions, dependency validation, and step execution
// tracking for the video narration pipeline.
package steps

import (
	dbpkg "github.com/jonathan/scene-narrator/internal/db"
)

// Step names
const (
	StepPreprocess         = "preprocess"
	StepFetchTranscription = "fetch-transcription"
	StepMakeScenes         = "make-scenes"
	StepExtractClips       = "extract-clips"
	StepGenerateAudio      = "generate-audio"
	StepAddVoiceover       = "add-voiceover"
	StepAssembleVideo      = "assemble-video"
)

// Step categories
const (
	CategoryIngestion = "ingestion"
	CategoryPlanning  = "planning"
	CategoryMedia     = "media"
	CategoryAssembly  = "assembly"
)

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name         string
	Category     string
	Dependencies []string
}

// StepRegistry holds all step definitions
var StepRegistry = map[string]StepDefinition{
	StepPreprocess: {
		Name:         StepPreprocess,
		Category:     CategoryIngestion,
		Dependencies: []string{},
	},
	StepFetchTranscription: {
		Name:         StepFetchTranscription,
		Category:     CategoryIngestion,
		Dependencies: []string{StepPreprocess},
	},
	StepMakeScenes: {
		Name:         StepMakeScenes,
		Category:     CategoryPlanning,
		Dependencies: []string{StepFetchTranscription},
	},
	StepExtractClips: {
		Name:         StepExtractClips,
		Category:     CategoryMedia,
		Dependencies: []string{StepMakeScenes},
	},
	StepGenerateAudio: {
		Name:         StepGenerateAudio,
		Category:     CategoryMedia,
		Dependencies: []string{StepMakeScenes},
	},
	StepAddVoiceover: {
		Name:         StepAddVoiceover,
		Category:     CategoryMedia,
		Dependencies: []string{StepExtractClips, StepGenerateAudio},
	},
	StepAssembleVideo: {
		Name:         StepAssembleVideo,
		Category:     CategoryAssembly,
		Dependencies: []string{StepAddVoiceover},
	},
}

var order = []string{
	StepPreprocess,
	StepFetchTranscription,
	StepMakeScenes,
	StepExtractClips,
	StepGenerateAudio,
	StepAddVoiceover,
	StepAssembleVideo,
}

// Order returns the step names in execution order
func Order() []string {
	out := make([]string, len(order))
	copy(out, order)
	return out
}

// Prerequisites returns the steps that must be completed before step may run.
// Unknown steps have no prerequisites.
func Prerequisites(step string) []string {
	def, ok := StepRegistry[step]
	if !ok {
		return nil
	}
	out := make([]string, len(def.Dependencies))
	copy(out, def.Dependencies)
	return out
}

// MissingDependencies returns the prerequisites of step that are not completed in doc,
// in declaration order. A nil doc has nothing completed.
func MissingDependencies(doc *dbpkg.StatusDocument, step string) []string {
	var missing []string
	for _, dep := range Prerequisites(step) {
		if !doc.Flag(CompletedKey(dep)) {
			missing = append(missing, dep)
		}
	}
	return missing
}

// ValidateDependencies checks if all required dependencies for a step are completed
func ValidateDependencies(doc *dbpkg.StatusDocument, step string) error {
	missing := MissingDependencies(doc, step)
	if len(missing) == 0 {
		return nil
	}
	return &StepDependencyError{
		Step:       step,
		Dependency: missing[0],
		Missing:    missing,
	}
}

// AvailableSteps returns steps that can be executed now (dependencies met, not running or done)
func AvailableSteps(doc *dbpkg.StatusDocument) []string {
	var available []string
	for _, step := range order {
		switch StateOf(doc, step) {
		case StateInProgress, StateCompleted:
			continue
		}
		if ValidateDependencies(doc, step) != nil {
			continue
		}
		available = append(available, step)
	}
	return available
}

// BlockedSteps returns steps that cannot run yet because a dependency is not completed
func BlockedSteps(doc *dbpkg.StatusDocument) []string {
	var blocked []string
	for _, step := range order {
		switch StateOf(doc, step) {
		case StateInProgress, StateCompleted:
			continue
		}
		if ValidateDependencies(doc, step) != nil {
			blocked = append(blocked, step)
		}
	}
	return blocked
}
