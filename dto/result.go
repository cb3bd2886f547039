package dto

import "time"

// OutcomeStatus tells how a stage handled one input.
type OutcomeStatus string

const (
	OutcomeOk   OutcomeStatus = "ok"
	OutcomeSkip OutcomeStatus = "skip"
	OutcomeFail OutcomeStatus = "fail"
)

// Outcome is the result of a stage for a single input.
type Outcome[T any] struct {
	Value  T
	Status OutcomeStatus
	Reason string
	Err    error
}

func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, Status: OutcomeOk}
}

func Skip[T any](reason string) Outcome[T] {
	return Outcome[T]{Status: OutcomeSkip, Reason: reason}
}

func Fail[T any](err error) Outcome[T] {
	return Outcome[T]{Status: OutcomeFail, Err: err, Reason: err.Error()}
}

func (o Outcome[T]) IsOk() bool { return o.Status == OutcomeOk }

// UpsertAction is the decision taken for one fragment.
type UpsertAction string

const (
	ActionInserted UpsertAction = "inserted"
	ActionUpdated  UpsertAction = "updated"
	ActionSkipped  UpsertAction = "skipped"
	ActionFailed   UpsertAction = "failed"
)

// UpsertResult is returned for every fragment handed to the merge engine.
type UpsertResult struct {
	Key    ExpedienteKey `json:"key"`
	Order  string        `json:"order,omitempty"`
	Action UpsertAction  `json:"action"`
	Forced bool          `json:"forced,omitempty"`
	DryRun bool          `json:"dry_run,omitempty"`
	Err    error         `json:"-"`
}

// FragmentError is a per-fragment failure kept in the run summary.
type FragmentError struct {
	CaseID  string `json:"case_id"`
	OrderID string `json:"order_id,omitempty"`
	Message string `json:"message"`
}

// RunSummary counts merge decisions for a batch.
type RunSummary struct {
	RunID     string          `json:"run_id"`
	Inserted  int             `json:"inserted"`
	Updated   int             `json:"updated"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	DryRun    bool            `json:"dry_run"`
	Forced    bool            `json:"forced"`
	Errors    []FragmentError `json:"errors,omitempty"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Duration  time.Duration   `json:"duration"`
}

// Add counts one upsert result.
func (s *RunSummary) Add(r UpsertResult) {
	switch r.Action {
	case ActionInserted:
		s.Inserted++
	case ActionUpdated:
		s.Updated++
	case ActionSkipped:
		s.Skipped++
	case ActionFailed:
		s.Failed++
		msg := ""
		if r.Err != nil {
			msg = r.Err.Error()
		}
		s.Errors = append(s.Errors, FragmentError{
			CaseID:  r.Key.NumeroExpediente,
			OrderID: r.Order,
			Message: msg,
		})
	}
}

func (s *RunSummary) Total() int {
	return s.Inserted + s.Updated + s.Skipped + s.Failed
}
