package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
	"github.com/charlesng35/wavtrack/pkg/response"
	appValidator "github.com/charlesng35/wavtrack/pkg/validator"
)

const genericPayloadMessage = "invalid request payload"

// ruleMessages renders a failed rule for a field. Rules not listed here fall
// back to a tag=param description.
var ruleMessages = map[string]func(field, param string) string{
	"required": func(field, _ string) string { return field + " is required" },
	"min":      func(field, p string) string { return fmt.Sprintf("%s must be at least %s characters", field, p) },
	"max":      func(field, p string) string { return fmt.Sprintf("%s must be at most %s characters", field, p) },
	"gte":      func(field, p string) string { return fmt.Sprintf("%s must be at least %s", field, p) },
	"lte":      func(field, p string) string { return fmt.Sprintf("%s must be at most %s", field, p) },
	"project_status": func(field, _ string) string {
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(appValidator.ProjectStatuses, ", "))
	},
	"chart_range": func(field, _ string) string {
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(appValidator.ChartRanges, ", "))
	},
}

// bindAndValidate decodes the JSON body into dest and applies its validate
// tags. On failure the 400 response is already written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}
	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(describeValidation(err)))
		return false
	}
	return true
}

func describeValidation(err error) string {
	var failures appValidator.ValidationErrors
	if !errors.As(err, &failures) || len(failures) == 0 {
		return genericPayloadMessage
	}

	messages := make([]string, 0, len(failures))
	for _, failure := range failures {
		field := humanField(failure.Field)
		if render, ok := ruleMessages[failure.Tag]; ok {
			messages = append(messages, render(field, failure.Param))
			continue
		}
		rule := failure.Tag
		if failure.Param != "" {
			rule += "=" + failure.Param
		}
		messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, rule))
	}
	return strings.Join(messages, "; ")
}

func humanField(name string) string {
	if name == "" {
		return "field"
	}
	return strings.ToLower(strings.ReplaceAll(name, "_", " "))
}

// parseIntQuery reads an integer query parameter, returning fallback when it
// is absent or malformed.
func parseIntQuery(c *gin.Context, key string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return fallback
	}
	return parsed
}
