package capability

import (
	"context"
	"fmt"

	"github.com/cobaltgrid/axon/pkg/logger"
)

// LogAdapter writes model-directed output through the structured logger.
type LogAdapter struct{}

func NewLogAdapter() *LogAdapter {
	return &LogAdapter{}
}

func (a *LogAdapter) Name() string {
	return "LogAdapter"
}

func (a *LogAdapter) Actions() []string {
	return []string{"log"}
}

func (a *LogAdapter) Invoke(_ context.Context, action string, params map[string]any) (string, error) {
	switch action {
	case "log":
		output, err := StringParam(params, "output")
		if err != nil {
			return "", err
		}
		logger.InfoCF("agent-output", output, nil)
		return fmt.Sprintf("logged: %s", output), nil
	default:
		return "", fmt.Errorf("%w: %s.%s", ErrActionNotFound, a.Name(), action)
	}
}
