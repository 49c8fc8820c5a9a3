package schemas

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SceneEntry is one scene as produced by the content generator
type SceneEntry struct {
	Title             string  `json:"title"`
	TimeStart         float64 `json:"time_start" validate:"gte=0"`
	TimeEnd           float64 `json:"time_end" validate:"gtfield=TimeStart"`
	OriginalNarration string  `json:"original_narration"`
	PolishedNarration string  `json:"polished_narration"`
}

// SceneList is the top-level generated document
type SceneList struct {
	Steps []SceneEntry `json:"steps" validate:"required,min=1,dive"`
}

// ParseSceneList validates content against the scene list schema, decodes it, and checks
// that every scene has a positive time range.
func ParseSceneList(content string) (*SceneList, error) {
	if err := ValidateJSONString(sceneListSchema, content); err != nil {
		return nil, err
	}

	var list SceneList
	if err := json.Unmarshal([]byte(content), &list); err != nil {
		return nil, fmt.Errorf("failed to decode scene list: %w", err)
	}

	if err := validate.Struct(&list); err != nil {
		return nil, toValidationError(err)
	}
	return &list, nil
}

func toValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("failed to validate scene list: %w", err)
	}
	out := &ValidationError{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{
			Field:   fe.Namespace(),
			Message: fmt.Sprintf("failed %s check", fe.Tag()),
		})
	}
	return out
}
