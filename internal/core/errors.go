package core

import (
	"errors"
	"fmt"
)

// ErrEmptyResult is returned when the pipeline produces zero rows after
// exclusions. It signals a misconfiguration, not missing data.
var ErrEmptyResult = errors.New("pipeline produced 0 rows after processing; check exclusions and inputs")

// ConfigError reports a structural problem with an input, such as a
// required column missing from the baseline table. It aborts the run.
type ConfigError struct {
	Column string
	Msg    string
}

func (e *ConfigError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("base table missing required column: %s", e.Column)
	}
	return e.Msg
}

// MissingColumn builds a ConfigError naming the absent column.
func MissingColumn(col string) error {
	return &ConfigError{Column: col}
}
