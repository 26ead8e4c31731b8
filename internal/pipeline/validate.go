package pipeline

// #region imports
import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// #endregion

// #region validate

// validateRequest rejects requests the cascade must never see. Runs
// before any collaborator is called.
func validateRequest(req ChatRequest, maxLen int) *StructuralError {
	if strings.TrimSpace(req.UserText) == "" {
		return &StructuralError{Field: "user_text", Reason: "must not be empty"}
	}
	if maxLen > 0 && utf8.RuneCountInString(req.UserText) > maxLen {
		return &StructuralError{
			Field:  "user_text",
			Reason: fmt.Sprintf("longer than %d characters", maxLen),
		}
	}
	return nil
}

// #endregion
