package handoff

import "errors"

// ErrNoProject is returned when no project directory was given.
var ErrNoProject = errors.New("project path is required")
