// Package generator пишет черновики историй через языковую модель.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"starlit-server/internal/llm"
	"starlit-server/internal/models"
	"starlit-server/internal/prompts"
	"starlit-server/internal/safety"

	"go.uber.org/zap"
)

const (
	defaultTitle  = "A Bedtime Story"
	maxTitleRunes = 80
	maxThemes     = 3
	maxThemeRunes = 40
)

// GenerateInput - все, что нужно для одной попытки.
// PriorStory != nil означает правку живой истории, ThemeHint тогда содержит правку.
type GenerateInput struct {
	ThemeHint           string
	PriorStory          *models.Story
	Tier                models.LengthTier
	NegativeConstraints []string
}

// generatorResponse - ожидаемый JSON ответа модели.
type generatorResponse struct {
	Title string `json:"title"`
	Story string `json:"story"`
	Notes string `json:"notes"`

	// массив строк или одна строка через запятую
	Themes json.RawMessage `json:"themes"`
}

type Generator struct {
	gateway llm.Gateway
	prompts prompts.Renderer
	model   string
	logger  *zap.Logger
}

func New(gateway llm.Gateway, renderer prompts.Renderer, model string, logger *zap.Logger) *Generator {
	return &Generator{
		gateway: gateway,
		prompts: renderer,
		model:   model,
		logger:  logger.Named("StoryGenerator"),
	}
}

// Generate возвращает один черновик. AttemptCount выставляет вызывающий цикл.
func (g *Generator) Generate(ctx context.Context, in GenerateInput) (models.StoryDraft, error) {
	words := in.Tier.Words()
	vars := map[string]string{
		"WORDS_MIN":    strconv.Itoa(words.Min),
		"WORDS_MAX":    strconv.Itoa(words.Max),
		"WORDS_TARGET": strconv.Itoa(words.Target),
		"CONSTRAINTS":  formatConstraints(in.NegativeConstraints),
	}

	key := prompts.KeyGeneratorNew
	if in.PriorStory != nil {
		key = prompts.KeyGeneratorModify
		vars["PRIOR_TITLE"] = in.PriorStory.Title
		vars["PRIOR_STORY"] = in.PriorStory.Body
		vars["MODIFICATION"] = in.ThemeHint
	} else {
		vars["THEME"] = in.ThemeHint
	}

	prompt, err := g.prompts.Render(key, vars)
	if err != nil {
		return models.StoryDraft{}, fmt.Errorf("failed to render %s prompt: %w", key, err)
	}

	cons := llm.ConstraintsFor(llm.RoleGenerator, g.model)
	cons.LengthTier = in.Tier
	cons.JSON = true
	raw, err := g.gateway.Complete(ctx, prompt, cons)
	if err != nil {
		return models.StoryDraft{}, err
	}

	draft := g.parse(raw, in)
	if draft.Body == "" {
		return models.StoryDraft{}, fmt.Errorf("%w: %w: empty story", models.ErrGenerationUnavailable, models.ErrMalformedModelOutput)
	}
	g.logger.Debug("Draft generated",
		zap.String("title", draft.Title),
		zap.Int("words", len(strings.Fields(draft.Body))),
		zap.Bool("modification", in.PriorStory != nil),
	)
	return draft, nil
}

// parse разбирает JSON, а если его нет - берет сырой текст как тело истории.
func (g *Generator) parse(raw string, in GenerateInput) models.StoryDraft {
	var resp generatorResponse
	err := llm.ParseJSONObject(raw, &resp)
	if err == nil && strings.TrimSpace(resp.Story) != "" {
		title := safety.SanitizeText(resp.Title, maxTitleRunes)
		if title == "" {
			title = fallbackTitle(in)
		}
		body := safety.SanitizeText(resp.Story, 0)
		return models.StoryDraft{
			Title:  title,
			Body:   body,
			Themes: draftThemes(parseThemes(resp.Themes), body, in),
			Notes:  strings.TrimSpace(resp.Notes),
		}
	}
	if err != nil && !errors.Is(err, models.ErrMalformedModelOutput) {
		g.logger.Warn("Unexpected generator parse error", zap.Error(err))
	}

	title, body := splitTitle(safety.SanitizeText(raw, 0))
	if title == "" {
		title = fallbackTitle(in)
	}
	return models.StoryDraft{Title: title, Body: body, Themes: draftThemes(nil, body, in)}
}

// parseThemes принимает ["a", "b"] или "a, b". Все остальное игнорируется.
func parseThemes(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return strings.Split(joined, ",")
	}
	return nil
}

// draftThemes: темы модели, иначе поощряемые темы из текста и просьбы,
// иначе темы исходной истории при правке.
func draftThemes(fromModel []string, body string, in GenerateInput) []string {
	themes := make([]string, 0, maxThemes)
	seen := make(map[string]struct{}, maxThemes)
	for _, t := range fromModel {
		t = strings.ToLower(safety.SanitizeText(t, maxThemeRunes))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		themes = append(themes, t)
		if len(themes) == maxThemes {
			break
		}
	}
	if len(themes) > 0 {
		return themes
	}
	if found := safety.ThemesIn(in.ThemeHint+"\n"+body, maxThemes); len(found) > 0 {
		return found
	}
	if in.PriorStory != nil && len(in.PriorStory.Themes) > 0 {
		return append([]string(nil), in.PriorStory.Themes...)
	}
	return nil
}

// splitTitle отделяет заголовок вида "Title: ..." или "# ..." в первой строке.
func splitTitle(text string) (string, string) {
	first, rest, found := strings.Cut(text, "\n")
	if !found {
		return "", text
	}
	line := strings.TrimSpace(first)
	switch {
	case strings.HasPrefix(strings.ToLower(line), "title:"):
		line = strings.TrimSpace(line[len("title:"):])
	case strings.HasPrefix(line, "#"):
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
	default:
		return "", text
	}
	line = strings.Trim(line, `"*`)
	if line == "" || len([]rune(line)) > maxTitleRunes {
		return "", text
	}
	return line, strings.TrimSpace(rest)
}

func fallbackTitle(in GenerateInput) string {
	if in.PriorStory != nil && in.PriorStory.Title != "" {
		return in.PriorStory.Title
	}
	theme := strings.TrimSpace(in.ThemeHint)
	for _, prefix := range []string{"tell me a story about", "a story about", "story about", "tell me about"} {
		if len(theme) >= len(prefix) && strings.EqualFold(theme[:len(prefix)], prefix) {
			theme = strings.TrimSpace(theme[len(prefix):])
			break
		}
	}
	theme = strings.TrimRight(theme, ".!?")
	for _, article := range []string{"a ", "an ", "the "} {
		if len(theme) > len(article) && strings.EqualFold(theme[:len(article)], article) {
			theme = theme[len(article):]
			break
		}
	}
	if theme == "" {
		return defaultTitle
	}
	if r := []rune(theme); len(r) > maxTitleRunes-len("The Tale of ") {
		theme = string(r[:maxTitleRunes-len("The Tale of ")])
	}
	return "The Tale of " + titleCase(theme)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if i > 0 && isMinorWord(w) {
			continue
		}
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func isMinorWord(w string) bool {
	switch strings.ToLower(w) {
	case "a", "an", "the", "and", "or", "of", "who", "to", "in", "on", "with":
		return true
	}
	return false
}

func formatConstraints(constraints []string) string {
	if len(constraints) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("A previous draft was rejected. Avoid the following:\n")
	for _, c := range constraints {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
