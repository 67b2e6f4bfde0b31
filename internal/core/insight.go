package core

import (
	"fmt"
	"strings"
	"time"
)

// InsightType classifies the tone of a generated insight.
type InsightType string

const (
	InsightWarning InsightType = "warning"
	InsightSuccess InsightType = "success"
	InsightInfo    InsightType = "info"
)

// Insight is one short observation about a user's spending.
type Insight struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	Text        string      `json:"text"`
	Type        InsightType `json:"type"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

// ParseInsightType accepts the three known types case-insensitively.
func ParseInsightType(s string) (InsightType, error) {
	switch t := InsightType(strings.ToLower(strings.TrimSpace(s))); t {
	case InsightWarning, InsightSuccess, InsightInfo:
		return t, nil
	default:
		return "", fmt.Errorf("%w: insight type %q", ErrInvalidInput, s)
	}
}
