package scheduler

import "time"

// Outcome classifies how a solve ended.
type Outcome string

const (
	OutcomeSolved             Outcome = "solved"
	OutcomeNoData             Outcome = "no_data"
	OutcomeInfeasibleCapacity Outcome = "infeasible_capacity"
	OutcomeExhausted          Outcome = "exhausted"
	OutcomeTimeout            Outcome = "timeout"
	OutcomeIterationLimit     Outcome = "iteration_limit"
	OutcomeCancelled          Outcome = "cancelled"
	OutcomeBusy               Outcome = "busy"
	OutcomeInternalError      Outcome = "internal_error"
)

// TimeoutClass groups wall-clock and iteration budget exhaustion.
func (o Outcome) TimeoutClass() bool {
	return o == OutcomeTimeout || o == OutcomeIterationLimit
}

// Retryable reports outcomes where a fresh shuffled attempt may succeed.
func (o Outcome) Retryable() bool {
	return o.TimeoutClass() || o == OutcomeExhausted
}

// Result is the value returned by every solve. Failures are never Go errors.
type Result struct {
	Success    bool          `json:"success"`
	Outcome    Outcome       `json:"outcome"`
	Message    string        `json:"message"`
	Reasons    []string      `json:"reasons,omitempty"`
	Iterations int           `json:"iterations"`
	Elapsed    time.Duration `json:"elapsed"`
}

func failure(outcome Outcome, message string, reasons ...string) Result {
	return Result{Outcome: outcome, Message: message, Reasons: reasons}
}
