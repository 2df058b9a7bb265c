package router

import "regexp"

var (
	farewellRegex = regexp.MustCompile(`(?i)\b(good\s*night|night night|nighty night|good\s*bye|bye|bye bye|see you|see ya|farewell|sweet dreams|that'?s all|thank you|thanks|thank u)\b`)
	greetingRegex = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|hiya|howdy|greetings|good (morning|afternoon|evening))\b`)

	// признаки просьбы рассказать историю
	storyRequestRegex = regexp.MustCompile(`(?i)\b(story|stories|tale|tales|tell me|tell us|read me|once upon|write|about)\b`)
	// явная просьба о новой истории, даже если живая история есть
	newStoryRegex = regexp.MustCompile(`(?i)\b(new story|another story|different story|other story|story about|stories about|tale about|tell me a|tell me about|tell us a|read me a|write a|write me a)\b`)
	// правка существующей истории: повелительные и сравнительные обороты
	modifyRegex = regexp.MustCompile(`(?i)(^\s*(make|change|add|let|can you make|could you make|please make|now make)\b|\b(instead|the ending|the end|the hero|the story|this story|that story|the main character|longer|shorter|funnier|braver|sillier|happier|more|less|rename|again but|what if)\b)`)

	chitChatRegex = regexp.MustCompile(`(?i)^\s*(ok|okay|k|hmm+|hm+|yes|yeah|yep|no|nope|cool|nice|wow|sure|yay|lol|uh+|um+|oh|ah|huh|maybe|great|awesome)\s*[.!?]*\s*$`)
)

// isFarewell: "thanks, can you make it longer?" при живой истории - это правка, а не прощание.
func isFarewell(input string, hasLiveStory bool) bool {
	if !farewellRegex.MatchString(input) || newStoryRegex.MatchString(input) {
		return false
	}
	return !(hasLiveStory && isModification(input))
}

func isGreeting(input string) bool {
	return greetingRegex.MatchString(input) && !storyRequestRegex.MatchString(input)
}

func isChitChat(input string) bool {
	return chitChatRegex.MatchString(input)
}

func isNewStoryRequest(input string) bool {
	return newStoryRegex.MatchString(input)
}

func isModification(input string) bool {
	return modifyRegex.MatchString(input)
}
