// Package validation checks video records and request payloads before they
// reach the store.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/reelhub/discovery/internal/db"
	"github.com/reelhub/discovery/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateVideo checks the struct tags on v plus the rules tags cannot
// express. Failures wrap db.ErrInvalidInput.
func ValidateVideo(v *models.Video) error {
	if v == nil {
		return fmt.Errorf("%w: video is nil", db.ErrInvalidInput)
	}
	if strings.TrimSpace(v.Title) == "" {
		return fmt.Errorf("%w: title must not be blank", db.ErrInvalidInput)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", db.ErrInvalidInput, describe(err))
	}
	return nil
}

// ValidateViewDeltas checks a batch of view updates. An empty batch is
// rejected; per-row delta rules are left to the store so one bad row does not
// fail the batch.
func ValidateViewDeltas(deltas []models.ViewDelta) error {
	if len(deltas) == 0 {
		return fmt.Errorf("%w: updates must not be empty", db.ErrInvalidInput)
	}
	for i := range deltas {
		if deltas[i].VideoID <= 0 {
			return fmt.Errorf("%w: updates[%d]: video id must be positive", db.ErrInvalidInput, i)
		}
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
