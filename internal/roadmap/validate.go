package roadmap

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/existflow/secureplan/internal/model"
)

// Submission limits
const (
	MaxNameLength    = 50
	MinRoadmapLength = 10
	MaxTasks         = 100
)

// ErrValidation is the parent of every submission error.
var ErrValidation = errors.New("invalid submission")

var (
	ErrEmptyInput      = fmt.Errorf("%w: project name and roadmap cannot be empty", ErrValidation)
	ErrNameTooLong     = fmt.Errorf("%w: project name is too long", ErrValidation)
	ErrRoadmapTooShort = fmt.Errorf("%w: roadmap is too short, enter a detailed plan", ErrValidation)
	ErrNoTasks         = fmt.Errorf("%w: no tasks could be extracted from the roadmap", ErrValidation)
	ErrTooManyTasks    = fmt.Errorf("%w: a project can have at most %d tasks", ErrValidation, MaxTasks)
)

// ValidateSubmission checks a project submission and returns the parsed tasks.
// Checks run in a fixed order and the first failure is returned.
func ValidateSubmission(name, text string, roster []model.TeamMember, now time.Time) ([]model.Task, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return nil, fmt.Errorf("%w (got %d, max %d)", ErrNameTooLong, n, MaxNameLength)
	}
	if utf8.RuneCountInString(text) < MinRoadmapLength {
		return nil, ErrRoadmapTooShort
	}

	tasks := ParseAt(text, roster, now)
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	if len(tasks) > MaxTasks {
		return nil, fmt.Errorf("%w (got %d)", ErrTooManyTasks, len(tasks))
	}
	return tasks, nil
}
