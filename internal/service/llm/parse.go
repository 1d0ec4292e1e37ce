package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	reviewModels "lexcorpus/internal/domain/models/review"
	reviewSvc "lexcorpus/internal/domain/services/review"
)

type extractionReply struct {
	Value         json.RawMessage `json:"value"`
	Confidence    *float64        `json:"confidence"`
	SourceExcerpt string          `json:"source_excerpt"`
}

// Date layouts accepted from the model, normalized to ISO
var dateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "02.01.2006", time.RFC3339}

// ParseExtraction reads a `{"value", "confidence", "source_excerpt"}` reply and
// normalizes the value for the column type. A null value is an empty cell
// with zero confidence.
func ParseExtraction(reply string, columnType reviewModels.ColumnType) (*reviewSvc.Extraction, error) {
	body := jsonObject(reply)
	if body == "" {
		return nil, fmt.Errorf("reply is not a JSON object")
	}

	var parsed extractionReply
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}

	value, err := normalizeValue(parsed.Value, columnType)
	if err != nil {
		return nil, err
	}

	confidence := 0.5
	if parsed.Confidence != nil {
		confidence = *parsed.Confidence
	}
	if value == "" {
		confidence = 0
	}
	return &reviewSvc.Extraction{
		Value:         value,
		Confidence:    confidence,
		SourceExcerpt: strings.TrimSpace(parsed.SourceExcerpt),
	}, nil
}

// jsonObject returns the outermost {...} of s, ignoring code fences and prose
func jsonObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func normalizeValue(raw json.RawMessage, columnType reviewModels.ColumnType) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode value: %w", err)
	}

	switch columnType {
	case reviewModels.ColumnList:
		if items, ok := decoded.([]interface{}); ok {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				if s := scalarString(item); s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, "; "), nil
		}
	case reviewModels.ColumnNumber:
		if s, ok := decoded.(string); ok {
			return normalizeNumber(s), nil
		}
	case reviewModels.ColumnBoolean:
		if s, ok := decoded.(string); ok {
			return normalizeBool(s), nil
		}
	case reviewModels.ColumnDate:
		if s, ok := decoded.(string); ok {
			return normalizeDate(s), nil
		}
	}

	if _, ok := decoded.([]interface{}); ok {
		return "", fmt.Errorf("unexpected list for %s column", columnType)
	}
	if _, ok := decoded.(map[string]interface{}); ok {
		return "", fmt.Errorf("unexpected object for %s column", columnType)
	}
	return scalarString(decoded), nil
}

func scalarString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// normalizeNumber strips currency and converts "1.234,56" to "1234.56"
func normalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return s
	}
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
		return s
	}
	return cleaned
}

func normalizeBool(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "sim", "s":
		return "true"
	case "false", "no", "não", "nao", "n":
		return "false"
	}
	return strings.TrimSpace(s)
}

func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
