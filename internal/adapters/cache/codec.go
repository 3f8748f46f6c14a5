package cache

import (
	"encoding/json"
	"fmt"

	"github.com/mikey/email-risk/internal/core"
)

func encodeVerdict(v *core.RiskVerdict) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode verdict: %w", err)
	}
	return string(data), nil
}

func decodeVerdict(data string) (*core.RiskVerdict, error) {
	var v core.RiskVerdict
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("failed to decode verdict: %w", err)
	}
	return &v, nil
}
