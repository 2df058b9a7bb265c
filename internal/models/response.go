package models

// ResponseKind - вариант FormattedResponse.
type ResponseKind string

const (
	ResponseStory          ResponseKind = "story"
	ResponseConversational ResponseKind = "conversational"
	ResponseError          ResponseKind = "error"
)

// FormattedResponse - контракт, возвращаемый внешнему вызывающему.
type FormattedResponse struct {
	Kind     ResponseKind
	Title    string
	Story    string
	Moral    string
	Themes   []string
	Text     string
	Message  string
	ThreadID string
}

func StoryResult(s Story, threadID string) FormattedResponse {
	return FormattedResponse{
		Kind:     ResponseStory,
		Title:    s.Title,
		Story:    s.Body,
		Moral:    s.Moral,
		Themes:   append([]string(nil), s.Themes...),
		ThreadID: threadID,
	}
}

func ConversationalResult(text, threadID string) FormattedResponse {
	return FormattedResponse{Kind: ResponseConversational, Text: text, ThreadID: threadID}
}

// ErrorResult несет только текст для пользователя. ThreadID заполняется,
// если тред уже был определен к моменту ошибки.
func ErrorResult(message, threadID string) FormattedResponse {
	return FormattedResponse{Kind: ResponseError, Message: message, ThreadID: threadID}
}

// APIResponse - JSON-форма ответа для клиента.
// Пустой title означает разговорный ответ, а не историю.
type APIResponse struct {
	Success  bool   `json:"success"`
	Story    string `json:"story,omitempty"`
	Title    string `json:"title,omitempty"`
	Moral    string `json:"moral,omitempty"`
	Error    string `json:"error,omitempty"`
	ThreadID string `json:"thread_id"`
}

// ToAPI сворачивает вариант в плоский JSON-контракт.
func (r FormattedResponse) ToAPI() APIResponse {
	switch r.Kind {
	case ResponseStory:
		return APIResponse{Success: true, Title: r.Title, Story: r.Story, Moral: r.Moral, ThreadID: r.ThreadID}
	case ResponseConversational:
		return APIResponse{Success: true, Story: r.Text, ThreadID: r.ThreadID}
	default:
		return APIResponse{Success: false, Error: r.Message, ThreadID: r.ThreadID}
	}
}
