package models

import "time"

// Role автора реплики в треде.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn - одна реплика в разговоре.
type Turn struct {
	Role      Role      `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}

// Story - последняя принятая история треда.
type Story struct {
	Title  string   `json:"title"`
	Body   string   `json:"story"`
	Moral  string   `json:"moral,omitempty"`
	Themes []string `json:"themes,omitempty"`
}

// ConversationThread хранит историю разговора и "живую" историю,
// которую можно модифицировать следующими запросами.
type ConversationThread struct {
	ID        string    `json:"id"`
	Turns     []Turn    `json:"turns"`
	LastStory *Story    `json:"last_story,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasLiveStory сообщает, есть ли в треде история для модификации.
func (t *ConversationThread) HasLiveStory() bool {
	return t != nil && t.LastStory != nil && t.LastStory.Body != ""
}

// RecentTurns возвращает последние n реплик (все, если n <= 0).
func (t *ConversationThread) RecentTurns(n int) []Turn {
	if t == nil {
		return nil
	}
	if n <= 0 || len(t.Turns) <= n {
		return t.Turns
	}
	return t.Turns[len(t.Turns)-n:]
}

// Clone возвращает глубокую копию треда.
func (t *ConversationThread) Clone() *ConversationThread {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Turns = append([]Turn(nil), t.Turns...)
	if t.LastStory != nil {
		s := t.LastStory.Clone()
		cp.LastStory = &s
	}
	return &cp
}

// Clone возвращает копию истории с отдельным срезом тем.
func (s Story) Clone() Story {
	s.Themes = append([]string(nil), s.Themes...)
	return s
}
