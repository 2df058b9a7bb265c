package models

// IntentKind - дискриминатор ClassifiedIntent.
type IntentKind string

const (
	IntentNewStory        IntentKind = "new_story"
	IntentModifyStory     IntentKind = "modify_story"
	IntentRetrieveClassic IntentKind = "retrieve_classic"
	IntentGreeting        IntentKind = "greeting"
	IntentFarewell        IntentKind = "farewell"
	IntentOther           IntentKind = "other"
)

// Intent - результат классификации сообщения. Ровно один вариант,
// Payload трактуется по Kind: тема, правка, запрос классики или исходный текст.
type Intent struct {
	Kind    IntentKind
	Payload string
}

func NewStoryIntent(themeHint string) Intent {
	return Intent{Kind: IntentNewStory, Payload: themeHint}
}

func ModifyStoryIntent(modificationHint string) Intent {
	return Intent{Kind: IntentModifyStory, Payload: modificationHint}
}

func RetrieveClassicIntent(query string) Intent {
	return Intent{Kind: IntentRetrieveClassic, Payload: query}
}

func GreetingIntent() Intent { return Intent{Kind: IntentGreeting} }

func FarewellIntent() Intent { return Intent{Kind: IntentFarewell} }

func OtherIntent(raw string) Intent {
	return Intent{Kind: IntentOther, Payload: raw}
}

// IsConversational - ветки, которые не вызывают генератор и валидатор.
func (i Intent) IsConversational() bool {
	switch i.Kind {
	case IntentGreeting, IntentFarewell, IntentOther:
		return true
	}
	return false
}

// ParseIntentKind разбирает метку от классификатора; ok=false для неизвестных.
func ParseIntentKind(s string) (IntentKind, bool) {
	switch k := IntentKind(s); k {
	case IntentNewStory, IntentModifyStory, IntentRetrieveClassic,
		IntentGreeting, IntentFarewell, IntentOther:
		return k, true
	}
	return "", false
}
