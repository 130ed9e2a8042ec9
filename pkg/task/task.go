// Package task defines the remote task entity and the people attached to it.
// Tasks are owned by the backend; the client only holds transient copies
// fetched per view.
package task

// Status enumerates the lifecycle states a task can be in.
type Status string

const (
	// StatusPending marks a task that still needs doing.
	StatusPending Status = "pending"
	// StatusCompleted marks a finished task.
	StatusCompleted Status = "completed"
)

// Rating is the user's verdict on an AI suggestion. The zero value means the
// suggestion has not been rated yet.
type Rating string

const (
	// RatingGood marks a suggestion as helpful.
	RatingGood Rating = "good"
	// RatingBad marks a suggestion as unhelpful.
	RatingBad Rating = "bad"
)

// Participant is a person attached to a task.
type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Suggestion is a single AI-generated suggestion attached to a task.
type Suggestion struct {
	Text   string `json:"text"`
	Rating Rating `json:"rating,omitempty"`
}

// User is the profile of the authenticated account, as returned by the
// backend and cached locally between runs.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Task mirrors the backend task record. The ricu score is derived from the
// reach/impact/confidence/urgency inputs server-side; the local copy carries
// both so manual reorders can be translated back into scoring inputs.
type Task struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	DueDate      string        `json:"due_date,omitempty"`
	Status       Status        `json:"status"`
	Participants []Participant `json:"participants,omitempty"`
	RICU         float64       `json:"ricu"`
	Reach        float64       `json:"reach"`
	Impact       float64       `json:"impact"`
	Confidence   float64       `json:"confidence"`
	Urgency      float64       `json:"urgency"`
	Suggestions  []Suggestion  `json:"aiSuggestions,omitempty"`
}

// Completed reports whether the task is done.
func (t *Task) Completed() bool {
	return t.Status == StatusCompleted
}
