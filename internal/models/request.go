package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// LengthTier - грубая целевая длина истории.
type LengthTier string

const (
	LengthShort  LengthTier = "short"
	LengthMedium LengthTier = "medium"
	LengthLong   LengthTier = "long"
)

// WordRange описывает желаемый объем текста в словах.
type WordRange struct {
	Min    int
	Max    int
	Target int
}

var lengthRanges = map[LengthTier]WordRange{
	LengthShort:  {Min: 200, Max: 400, Target: 300},
	LengthMedium: {Min: 400, Max: 800, Target: 600},
	LengthLong:   {Min: 800, Max: 1200, Target: 1000},
}

// Valid сообщает, является ли значение известным уровнем длины.
func (t LengthTier) Valid() bool {
	_, ok := lengthRanges[t]
	return ok
}

// Words возвращает диапазон слов для уровня (medium для неизвестного).
func (t LengthTier) Words() WordRange {
	if r, ok := lengthRanges[t]; ok {
		return r
	}
	return lengthRanges[LengthMedium]
}

// ParseLengthTier разбирает строку; пустая строка дает fallback.
func ParseLengthTier(s string, fallback LengthTier) (LengthTier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return fallback, nil
	}
	tier := LengthTier(s)
	if !tier.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLengthTier, s)
	}
	return tier, nil
}

// GenerationRequest - один входящий запрос пользователя.
type GenerationRequest struct {
	UserInput  string
	LengthTier LengthTier
	ThreadID   string
}

// Normalize обрезает пробелы и проверяет инварианты запроса.
// maxLen <= 0 отключает проверку длины.
func (r *GenerationRequest) Normalize(defaultTier LengthTier, maxLen int) error {
	r.UserInput = strings.TrimSpace(r.UserInput)
	r.ThreadID = strings.TrimSpace(r.ThreadID)
	if r.UserInput == "" {
		return ErrEmptyInput
	}
	if maxLen > 0 && utf8.RuneCountInString(r.UserInput) > maxLen {
		return fmt.Errorf("%w: limit is %d characters", ErrInputTooLong, maxLen)
	}
	tier, err := ParseLengthTier(string(r.LengthTier), defaultTier)
	if err != nil {
		return err
	}
	r.LengthTier = tier
	return nil
}
