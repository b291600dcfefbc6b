package inference

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/phrazzld/pulseweave/internal/domain"
)

// ParseResult decodes a model's JSON answer into a Result.
// Code fences around the object are tolerated. The answer must contain a
// non-empty task_type; confidence is clamped to [0, 1] and defaults to 0.5.
func ParseResult(text string) (domain.Result, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var result domain.Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrInvalidResponse)
	}

	taskType, _ := result["task_type"].(string)
	if strings.TrimSpace(taskType) == "" {
		return nil, fmt.Errorf("%w: task_type missing from response", ErrInvalidResponse)
	}

	confidence, ok := result["confidence"].(float64)
	if !ok {
		confidence = 0.5
	}
	result["confidence"] = min(max(confidence, 0), 1)

	if _, ok := result["potential_omissions"]; !ok {
		result["potential_omissions"] = []any{}
	}
	return result, nil
}
