package models

import "time"

// StoryEventKind - тип события для внешних потребителей.
type StoryEventKind string

const (
	EventStoryCreated     StoryEventKind = "story_created"
	EventStoryModified    StoryEventKind = "story_modified"
	EventClassicRetrieved StoryEventKind = "classic_retrieved"
	EventRefusal          StoryEventKind = "refusal"
)

// StoryEvent публикуется после каждого завершенного запроса с историей или отказом.
type StoryEvent struct {
	EventID  string         `json:"event_id"`
	ThreadID string         `json:"thread_id"`
	Kind     StoryEventKind `json:"kind"`
	Title    string         `json:"title,omitempty"`
	Attempts int            `json:"attempts"`
	At       time.Time      `json:"at"`
}
