package safety

import (
	"fmt"
	"strings"
)

var alternativesByTopic = []struct {
	keys         []string
	alternatives []string
}{
	{[]string{"violence", "violent", "kill", "murder", "blood"}, []string{"courage", "bravery", "problem-solving"}},
	{[]string{"scary", "horror", "haunted", "nightmare", "demon"}, []string{"adventure", "mystery", "discovery"}},
	{[]string{"death", "dead", "dying", "funeral"}, []string{"saying goodbye", "remembering loved ones", "the circle of life"}},
	{[]string{"fight", "battle", "war", "combat"}, []string{"cooperation", "working together", "resolving conflicts"}},
	{[]string{"monster"}, []string{"friendly creatures", "magical beings", "animal friends"}},
}

var defaultAlternatives = []string{
	"friendship and kindness",
	"helping others",
	"learning something new",
	"animal adventures",
	"magical discoveries",
}

// SafeAlternatives предлагает безопасные темы вместо отклоненной.
// Поощряемая тема из самой просьбы идет первой.
func SafeAlternatives(rejected string) []string {
	return withKeptTheme(ThemesIn(rejected, 1), topicAlternatives(rejected))
}

func topicAlternatives(rejected string) []string {
	lower := strings.ToLower(rejected)
	for _, entry := range alternativesByTopic {
		for _, k := range entry.keys {
			if strings.Contains(lower, k) {
				return entry.alternatives
			}
		}
	}
	return defaultAlternatives
}

func withKeptTheme(kept, alternatives []string) []string {
	res := append([]string(nil), kept...)
	for _, alt := range alternatives {
		if len(kept) > 0 && alt == kept[0] {
			continue
		}
		res = append(res, alt)
	}
	return res
}

// RefusalMessage - мягкий отказ в образе рассказчика, без технических деталей.
func RefusalMessage(rejected string) string {
	alts := SafeAlternatives(rejected)
	if len(alts) > 3 {
		alts = alts[:3]
	}
	return fmt.Sprintf(
		"I'm sorry, I can't tell that story. I can make a safe, cozy story about %s instead. Would you like that?",
		strings.Join(alts, ", "),
	)
}
