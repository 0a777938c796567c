package telemetry

import (
	"fmt"
	"strings"
)

// SchemaError is returned when required columns are absent from the input
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}
