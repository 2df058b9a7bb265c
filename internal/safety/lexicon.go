package safety

import (
	"regexp"

	"starlit-server/internal/models"
)

// bannedTerms никогда не допустимы в истории для детей 5-10 лет.
var bannedTerms = map[models.ViolationCategory][]string{
	models.ViolationViolence: {
		"murder", "killing", "blood", "gore", "torture", "massacre",
		"mutilation", "dismemberment", "slaughter", "violent death",
	},
	models.ViolationAdult: {
		"sex", "sexual", "erotic", "pornography", "nudity", "intercourse",
		"genitals", "masturbation", "rape", "assault",
	},
	models.ViolationSubstances: {
		"drugs", "cocaine", "heroin", "meth", "marijuana", "weed",
		"cigarettes", "smoking", "drinking", "drunk", "alcoholic",
		"overdose", "addiction", "high on",
	},
	models.ViolationSelfHarm: {
		"suicide", "self-harm", "cutting", "depression", "trauma",
		"abuse", "molestation", "pedophile", "kidnapping",
	},
	models.ViolationLanguage: {
		"damn", "hell", "shit", "fuck", "bitch", "bastard",
	},
	models.ViolationWeapons: {
		"gun", "rifle", "pistol", "grenade", "bomb", "explosive",
		"knife attack", "stabbing", "shooting",
	},
	models.ViolationFearHorror: {
		"nightmare", "demon", "possessed", "haunted", "evil spirit",
		"terror", "horrifying", "gruesome", "macabre",
	},
}

// warningTerms отклоняются только в строгом режиме.
var warningTerms = []string{
	"death", "dying", "dead", "funeral", "cemetery", "grave",
	"monster", "scary", "frightened", "afraid", "fear",
	"fight", "battle", "combat", "war", "conflict",
	"sad", "crying", "tears", "lonely", "abandoned",
	"lost", "separated", "orphan", "homeless",
	"fire", "burn", "flames", "disaster", "catastrophe",
}

// benignPhrases вырезаются перед проверкой: безобидные сочетания,
// содержащие запрещенные слова.
var benignPhrases = []string{
	"shooting star", "shooting stars",
	"drinking water", "drinking milk", "drinking tea", "drinking cocoa", "drinking hot chocolate",
	"cutting paper", "cutting the cake", "cutting flowers",
	"weed the garden", "high on the", "high on a",
}

// positiveThemes - поощряемые темы. Ими размечаются истории, они же
// дополняют предложения в мягком отказе.
var positiveThemes = []string{
	"friendship", "kindness", "courage", "bravery", "helping",
	"sharing", "caring", "love", "family", "honesty",
	"truth", "fairness", "cooperation", "teamwork",
	"adventure", "discovery", "learning", "growing", "magic",
	"wonder", "joy", "happiness", "laughter", "fun",
}

var positiveThemeRegexes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(positiveThemes))
	for i, theme := range positiveThemes {
		res[i] = wordRegex(theme)
	}
	return res
}()

// ThemesIn возвращает поощряемые темы, упомянутые в тексте, в порядке списка.
// limit <= 0 означает без ограничения.
func ThemesIn(text string, limit int) []string {
	var found []string
	for i, re := range positiveThemeRegexes {
		if limit > 0 && len(found) >= limit {
			break
		}
		if re.MatchString(text) {
			found = append(found, positiveThemes[i])
		}
	}
	return found
}
