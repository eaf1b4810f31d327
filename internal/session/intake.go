package session

import (
	"fmt"
	"strings"
)

// Question is one step of the goal intake conversation.
type Question struct {
	Key      string   `json:"key"`
	Prompt   string   `json:"prompt"`
	Required bool     `json:"required"`
	Default  string   `json:"default,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// GoalQuestions are asked in order by the goal intake.
var GoalQuestions = []Question{
	{Key: "name", Prompt: "What is the name of the new goal?", Required: true},
	{Key: "description", Prompt: "Describe what this goal should achieve and how we will know it is done.", Required: true},
	{Key: "priority", Prompt: "What is its priority?", Default: "Medium", Options: []string{"Critical", "High", "Medium", "Low"}},
	{Key: "tier", Prompt: "Which planning tier does it belong to?", Default: "Next", Options: []string{"Now", "Next", "Later", "Someday"}},
	{Key: "owner", Prompt: "Who owns this goal? Answer with an empty string to leave it unassigned."},
}

// Current returns the question the session is waiting on. ok is false
// once every question has been answered.
func (s *Session) Current() (Question, bool) {
	if s.Step < 0 || s.Step >= len(GoalQuestions) {
		return Question{}, false
	}
	return GoalQuestions[s.Step], true
}

// Done reports whether every question has been answered.
func (s *Session) Done() bool {
	return s.Step >= len(GoalQuestions)
}

// Answer records an answer to the current question and advances. An
// invalid answer leaves the session on the same step.
func (s *Session) Answer(answer string) error {
	q, ok := s.Current()
	if !ok {
		return fmt.Errorf("session %s has no pending question", s.ID)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		if q.Required {
			return fmt.Errorf("%s is required", q.Key)
		}
		answer = q.Default
	}
	if len(q.Options) > 0 {
		matched := ""
		for _, opt := range q.Options {
			if strings.EqualFold(opt, answer) {
				matched = opt
				break
			}
		}
		if matched == "" {
			return fmt.Errorf("%s must be one of: %s", q.Key, strings.Join(q.Options, ", "))
		}
		answer = matched
	}
	if s.Answers == nil {
		s.Answers = map[string]string{}
	}
	s.Answers[q.Key] = answer
	s.Step++
	return nil
}
