package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbpkg "github.com/jonathan/scene-narrator/internal/db"
)

func TestStepRegistry(t *testing.T) {
	// Verify all expected steps are in the registry
	expectedSteps := []string{
		"preprocess", "fetch-transcription", "make-scenes",
		"extract-clips", "generate-audio", "add-voiceover",
		"assemble-video",
	}

	for _, stepName := range expectedSteps {
		def, ok := StepRegistry[stepName]
		require.True(t, ok, "Step %s should be in registry", stepName)
		assert.Equal(t, stepName, def.Name)
		assert.NotEmpty(t, def.Category)
	}
	assert.Len(t, StepRegistry, len(expectedSteps))
	assert.Equal(t, expectedSteps, Order())
}

func TestPrerequisites(t *testing.T) {
	tests := []struct {
		step string
		want []string
	}{
		{StepPreprocess, []string{}},
		{StepFetchTranscription, []string{StepPreprocess}},
		{StepMakeScenes, []string{StepFetchTranscription}},
		{StepExtractClips, []string{StepMakeScenes}},
		{StepGenerateAudio, []string{StepMakeScenes}},
		{StepAddVoiceover, []string{StepExtractClips, StepGenerateAudio}},
		{StepAssembleVideo, []string{StepAddVoiceover}},
	}

	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			assert.Equal(t, tt.want, Prerequisites(tt.step))
		})
	}
}

func TestPrerequisites_UnknownStep(t *testing.T) {
	assert.Empty(t, Prerequisites("unknown_step"))
}

func TestPrerequisites_ReturnsCopy(t *testing.T) {
	deps := Prerequisites(StepAddVoiceover)
	deps[0] = "mutated"
	assert.Equal(t, StepExtractClips, Prerequisites(StepAddVoiceover)[0])
}

func TestStepRegistry_DependenciesAreRegistered(t *testing.T) {
	for name, def := range StepRegistry {
		for _, dep := range def.Dependencies {
			_, ok := StepRegistry[dep]
			assert.True(t, ok, "dependency %s of %s is not registered", dep, name)
		}
	}
}

func TestStepRegistry_Acyclic(t *testing.T) {
	// every dependency must come earlier in Order
	position := make(map[string]int)
	for i, step := range Order() {
		position[step] = i
	}
	for name, def := range StepRegistry {
		for _, dep := range def.Dependencies {
			assert.Less(t, position[dep], position[name], "%s must precede %s", dep, name)
		}
	}
}

func TestValidateDependencies_NilDocument(t *testing.T) {
	assert.NoError(t, ValidateDependencies(nil, StepPreprocess))

	err := ValidateDependencies(nil, StepFetchTranscription)
	var depErr *StepDependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, StepFetchTranscription, depErr.Step)
	assert.Equal(t, StepPreprocess, depErr.Dependency)
}

func TestValidateDependencies_NamesFirstMissing(t *testing.T) {
	doc := &dbpkg.StatusDocument{StepsStatus: map[string]bool{
		CompletedKey(StepExtractClips): true,
	}}

	err := ValidateDependencies(doc, StepAddVoiceover)
	var depErr *StepDependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, StepGenerateAudio, depErr.Dependency)
	assert.Equal(t, []string{StepGenerateAudio}, depErr.Missing)
}

func TestAvailableAndBlockedSteps(t *testing.T) {
	doc := &dbpkg.StatusDocument{StepsStatus: map[string]bool{
		CompletedKey(StepPreprocess):         true,
		CompletedKey(StepFetchTranscription): true,
		CompletedKey(StepMakeScenes):         true,
		InProgressKey(StepExtractClips):      true,
		ErrorKey(StepGenerateAudio):          true,
	}}

	assert.Equal(t, []string{StepGenerateAudio}, AvailableSteps(doc))
	assert.Equal(t, []string{StepAddVoiceover, StepAssembleVideo}, BlockedSteps(doc))
}

func TestAvailableSteps_FreshJob(t *testing.T) {
	assert.Equal(t, []string{StepPreprocess}, AvailableSteps(nil))
	assert.Len(t, BlockedSteps(nil), len(Order())-1)
}
