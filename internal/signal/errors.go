package signal

import (
	"fmt"
	"strings"
)

// StructuralError reports a required field that is absent or malformed.
type StructuralError struct {
	Reason string
	Fields []string
}

func (e *StructuralError) Error() string {
	if len(e.Fields) == 0 {
		return "structural error: " + e.Reason
	}
	return fmt.Sprintf("structural error: %s (%s)", e.Reason, strings.Join(e.Fields, ", "))
}
