package prompt

import (
	"errors"
	"fmt"
	"strings"

	"cyberhoot-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

// MaxCount bounds a single generation batch.
const MaxCount = 50

// DefaultLanguage is used when the caller does not name one.
const DefaultLanguage = "English"

var validate = validator.New()

// Params describes one question-generation request.
type Params struct {
	Difficulty int                 `json:"difficulty" validate:"min=1,max=10"`
	Type       domain.QuestionType `json:"type" validate:"oneof=mcq open"`
	Language   string              `json:"language" validate:"required"`
	Topic      string              `json:"topic" validate:"required"`
	Count      int                 `json:"count" validate:"min=1,max=50"`
}

// Normalize trims fields, lower-cases the type and fills the default language.
func (p Params) Normalize() Params {
	p.Type = domain.QuestionType(strings.ToLower(strings.TrimSpace(string(p.Type))))
	p.Language = strings.TrimSpace(p.Language)
	if p.Language == "" {
		p.Language = DefaultLanguage
	}
	p.Topic = strings.TrimSpace(p.Topic)
	return p
}

// Validate normalizes p and reports the first invalid field as a validation error.
func (p Params) Validate() (Params, error) {
	p = p.Normalize()
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return p, fieldError(verrs[0])
		}
		return p, domain.Validationf("invalid generation parameters: %v", err)
	}
	return p, nil
}

func fieldError(fe validator.FieldError) error {
	switch fe.Field() {
	case "Difficulty":
		return domain.Validationf("difficulty must be between 1 and 10, got %v", fe.Value())
	case "Count":
		return domain.Validationf("count must be between 1 and %d, got %v", MaxCount, fe.Value())
	case "Type":
		return domain.Validationf("unrecognized question type %q (want mcq or open)", fmt.Sprint(fe.Value()))
	}
	return domain.Validationf("%s is required", strings.ToLower(fe.Field()))
}
