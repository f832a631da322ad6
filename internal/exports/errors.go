package exports

import "errors"

var (
	ErrNotFound           = errors.New("export not found")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrNotReady           = errors.New("export not ready")
)
