package safety

import (
	"regexp"
	"strings"

	"starlit-server/internal/models"
)

// Finding - одно срабатывание лексического фильтра.
type Finding struct {
	Category models.ViolationCategory
	Term     string
	Warning  bool
}

type compiledTerm struct {
	category models.ViolationCategory
	term     string
	re       *regexp.Regexp
	warning  bool
}

// LexicalScreen - быстрая проверка по словарю с границами слов, без учета регистра.
type LexicalScreen struct {
	strict bool
	terms  []compiledTerm
	benign *regexp.Regexp
}

// categoryOrder фиксирует порядок находок для детерминированных ответов.
var categoryOrder = []models.ViolationCategory{
	models.ViolationViolence, models.ViolationAdult, models.ViolationSubstances,
	models.ViolationSelfHarm, models.ViolationLanguage, models.ViolationWeapons,
	models.ViolationFearHorror,
}

// NewLexicalScreen компилирует словарь. strict добавляет предупреждающие темы.
func NewLexicalScreen(strict bool) *LexicalScreen {
	s := &LexicalScreen{strict: strict}
	for _, cat := range categoryOrder {
		for _, term := range bannedTerms[cat] {
			s.terms = append(s.terms, compiledTerm{category: cat, term: term, re: wordRegex(term)})
		}
	}
	if strict {
		for _, term := range warningTerms {
			s.terms = append(s.terms, compiledTerm{
				category: models.ViolationFearHorror, term: term, re: wordRegex(term), warning: true,
			})
		}
	}

	quoted := make([]string, 0, len(benignPhrases))
	for _, p := range benignPhrases {
		quoted = append(quoted, regexp.QuoteMeta(p))
	}
	s.benign = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	return s
}

func wordRegex(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
}

// Strict сообщает, включены ли предупреждающие темы.
func (s *LexicalScreen) Strict() bool { return s.strict }

// Screen возвращает все срабатывания; пустой результат - текст чист.
func (s *LexicalScreen) Screen(text string) []Finding {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	text = s.benign.ReplaceAllString(text, " ")

	var findings []Finding
	for _, t := range s.terms {
		if t.re.MatchString(text) {
			findings = append(findings, Finding{Category: t.category, Term: t.term, Warning: t.warning})
		}
	}
	return findings
}
