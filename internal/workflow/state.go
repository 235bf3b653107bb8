package workflow

import "fmt"

// State is a page workflow stage.
type State int

const (
	Analyze State = iota
	ExtractText
	ParseStructure
	ValidateData
	Done
	Failed
)

var stateNames = [...]string{
	Analyze:        "analyze",
	ExtractText:    "extract_text",
	ParseStructure: "parse_structure",
	ValidateData:   "validate_data",
	Done:           "done",
	Failed:         "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// Event is what a stage reports back to the machine.
type Event int

const (
	Succeeded Event = iota
	TransientFailure
	FatalFailure
	Cancelled
	Retry     // a new attempt begins after backoff
	Exhausted // the retry budget is spent
)

var eventNames = [...]string{
	Succeeded:        "succeeded",
	TransientFailure: "transient",
	FatalFailure:     "fatal",
	Cancelled:        "cancelled",
	Retry:            "retry",
	Exhausted:        "exhausted",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return fmt.Sprintf("event(%d)", int(e))
	}
	return eventNames[e]
}

// Effect is the action the driver performs after a transition.
type Effect int

const (
	NoEffect Effect = iota
	CallAnalyze
	CallExtract
	CallParse
	RunValidate
	ScheduleRetry
	Emit
)

var effectNames = [...]string{
	NoEffect:      "none",
	CallAnalyze:   "call_analyze",
	CallExtract:   "call_extract",
	CallParse:     "call_parse",
	RunValidate:   "run_validate",
	ScheduleRetry: "schedule_retry",
	Emit:          "emit",
}

func (e Effect) String() string {
	if e < 0 || int(e) >= len(effectNames) {
		return fmt.Sprintf("effect(%d)", int(e))
	}
	return effectNames[e]
}

// Start returns the initial state and its effect.
func Start() (State, Effect) {
	return Analyze, CallAnalyze
}

// Transition is the pure transition function of the page workflow.
//
// Analyze is advisory: the driver reports its recognition failures as
// Succeeded with default hints. Transient failures rewind to ExtractText and
// ask for a retry; the driver sends Exhausted when the budget is spent.
// Terminal states absorb every event.
func Transition(s State, ev Event) (State, Effect) {
	if s.Terminal() {
		return s, NoEffect
	}

	switch ev {
	case Cancelled, Exhausted, FatalFailure:
		return Failed, Emit
	case Retry:
		return ExtractText, CallExtract
	case TransientFailure:
		return ExtractText, ScheduleRetry
	case Succeeded:
		switch s {
		case Analyze:
			return ExtractText, CallExtract
		case ExtractText:
			return ParseStructure, CallParse
		case ParseStructure:
			return ValidateData, RunValidate
		case ValidateData:
			return Done, Emit
		}
	}
	return s, NoEffect
}
