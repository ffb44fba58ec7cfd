package domain

import "strings"

// OpenQuestionLabels are the task labels that mark a task as an open
// research question, compared case-insensitively.
var OpenQuestionLabels = []string{"open-question", "open question"}

// Task is a read projection of a workspace task, used only for the
// open-question lookup during context assembly.
type Task struct {
	ID          string
	WorkspaceID string
	SpaceID     string
	Title       string
	Labels      []string
	Done        bool
}

// HasOpenQuestionLabel reports whether any task label matches one of the
// recognized open-question labels.
func (t *Task) HasOpenQuestionLabel() bool {
	for _, label := range t.Labels {
		for _, want := range OpenQuestionLabels {
			if strings.EqualFold(strings.TrimSpace(label), want) {
				return true
			}
		}
	}
	return false
}
