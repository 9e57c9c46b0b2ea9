package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mmrzaf/sdcatalog/internal/domain"
)

const (
	maxTagLen  = 256
	maxPathLen = 4096
	maxTextLen = 1024
)

func ValidateDataset(ds *domain.Dataset) error {
	if ds == nil {
		return domain.NewValidationError("", "dataset is required")
	}
	return ValidateDatasetKey(ds.Node, ds.Disease, ds.Path)
}

// ValidateDatasetKey checks the full (node, disease, path) triple.
func ValidateDatasetKey(node, disease, path string) error {
	if err := ValidateLookup(node, disease); err != nil {
		return err
	}
	return requireText("path", path, maxPathLen)
}

func ValidateLookup(node, disease string) error {
	if err := requireText("node", node, maxTagLen); err != nil {
		return err
	}
	return requireText("disease", disease, maxTagLen)
}

func ValidateTaskRequest(req *domain.TaskRequest) error {
	if req == nil {
		return domain.NewValidationError("", "task request is required")
	}
	if err := requireText("username", req.Username, maxTagLen); err != nil {
		return err
	}
	if err := requireText("model", req.Model, maxTagLen); err != nil {
		return err
	}
	if req.NSample < 0 {
		return domain.NewValidationError("n_sample", fmt.Sprintf("must be >= 0, got %d", req.NSample))
	}
	if err := requireText("disease", req.Disease, maxTagLen); err != nil {
		return err
	}
	// An empty condition means unconditional generation.
	if utf8.RuneCountInString(req.Condition) > maxTextLen {
		return domain.NewValidationError("condition", fmt.Sprintf("must be at most %d characters", maxTextLen))
	}
	return nil
}

func ValidateTaskID(id string) error {
	return requireText("task_id", id, maxTagLen)
}

func ParseStatus(s string) (domain.TaskStatus, error) {
	st := domain.TaskStatus(strings.TrimSpace(s))
	if !st.IsValid() {
		allowed := make([]string, 0, len(domain.TaskStatuses()))
		for _, v := range domain.TaskStatuses() {
			allowed = append(allowed, v.String())
		}
		return "", domain.NewValidationError("status", fmt.Sprintf("%q is not one of %s", s, strings.Join(allowed, ", ")))
	}
	return st, nil
}

func requireText(field, value string, maxLen int) error {
	if strings.TrimSpace(value) == "" {
		return domain.NewValidationError(field, "is required")
	}
	if utf8.RuneCountInString(value) > maxLen {
		return domain.NewValidationError(field, fmt.Sprintf("must be at most %d characters", maxLen))
	}
	if strings.IndexFunc(value, unicode.IsControl) >= 0 {
		return domain.NewValidationError(field, "must not contain control characters")
	}
	return nil
}
