package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"starlit-server/internal/models"
)

var (
	jsonFenceRegex = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	anyFenceRegex  = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
)

// ExtractJSONObject достает JSON-объект из ответа модели:
// сначала блок ```json```, затем любой ``` блок, затем от первой { до последней }.
// Возвращает пустую строку, если валидного объекта нет.
func ExtractJSONObject(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if json.Valid([]byte(raw)) && strings.HasPrefix(raw, "{") {
		return raw
	}

	for _, re := range []*regexp.Regexp{jsonFenceRegex, anyFenceRegex} {
		if m := re.FindStringSubmatch(raw); len(m) > 1 {
			candidate := strings.TrimSpace(m[1])
			if strings.HasPrefix(candidate, "{") && json.Valid([]byte(candidate)) {
				return candidate
			}
		}
	}

	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first != -1 && last > first {
		candidate := raw[first : last+1]
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}
	return ""
}

// ParseJSONObject разбирает ответ модели в out. Ошибка оборачивает ErrMalformedModelOutput.
func ParseJSONObject(raw string, out interface{}) error {
	obj := ExtractJSONObject(raw)
	if obj == "" {
		return fmt.Errorf("%w: no JSON object found", models.ErrMalformedModelOutput)
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return fmt.Errorf("%w: %v", models.ErrMalformedModelOutput, err)
	}
	return nil
}
