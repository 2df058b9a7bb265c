package models

// StoryDraft - кандидат истории внутри цикла валидации.
type StoryDraft struct {
	Title            string
	Body             string
	Moral            string
	Themes           []string
	Notes            string
	AttemptCount     int
	RejectionReasons []string
}

// ToStory превращает принятый черновик в Story.
func (d StoryDraft) ToStory() Story {
	return Story{Title: d.Title, Body: d.Body, Moral: d.Moral, Themes: append([]string(nil), d.Themes...)}
}

// ViolationCategory - категория нарушения правил безопасности.
type ViolationCategory string

const (
	ViolationViolence   ViolationCategory = "violence"
	ViolationAdult      ViolationCategory = "adult_themes"
	ViolationFearHorror ViolationCategory = "fear_horror"
	ViolationLanguage   ViolationCategory = "language"
	ViolationSubstances ViolationCategory = "substances"
	ViolationSelfHarm   ViolationCategory = "self_harm"
	ViolationWeapons    ViolationCategory = "weapons"
	ViolationOther      ViolationCategory = "other"
)

// ValidationVerdict - итог проверки черновика.
type ValidationVerdict struct {
	Accepted     bool
	Reasons      []ViolationCategory
	Details      []string
	SuggestedFix string
	Score        float64
}

// AddReason добавляет категорию без дублей.
func (v *ValidationVerdict) AddReason(c ViolationCategory) {
	for _, r := range v.Reasons {
		if r == c {
			return
		}
	}
	v.Reasons = append(v.Reasons, c)
}
