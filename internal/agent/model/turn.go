package model

// Intent is the classification of a raw utterance.
type Intent int

const (
	IntentUnclassifiable Intent = iota
	IntentSchemaListing
	IntentDataQuery
	IntentGeneric
)

func (i Intent) String() string {
	switch i {
	case IntentSchemaListing:
		return "schema_listing"
	case IntentDataQuery:
		return "database_query"
	case IntentGeneric:
		return "generic"
	default:
		return "unclassifiable"
	}
}

// Outcome labels how a turn ended.
type Outcome string

const (
	OutcomeInvalidInput    Outcome = "invalid_input"
	OutcomeUnclassifiable  Outcome = "unclassifiable"
	OutcomeSchemaListing   Outcome = "schema_listing"
	OutcomeGeneric         Outcome = "generic"
	OutcomeClarification   Outcome = "clarification"
	OutcomeSynthesisFailed Outcome = "synthesis_failed"
	OutcomeExecutionFailed Outcome = "execution_failed"
	OutcomeAnswered        Outcome = "answered"
	OutcomeError           Outcome = "error"
)

// Terminal reports whether the outcome ends the resolution episode.
func (o Outcome) Terminal() bool {
	return o != OutcomeClarification && o != OutcomeInvalidInput && o != OutcomeUnclassifiable
}

// FragmentSink receives streamed response fragments in order.
type FragmentSink func(fragment string)

// TurnState is the payload threaded through the turn graph.
// The graph owns it for the duration of one Submit call.
type TurnState struct {
	Session   *Session
	Utterance string
	Sink      FragmentSink

	Intent   Intent
	Tables   []string
	SQL      string
	Result   *ExecResult
	Response string
	Outcome  Outcome
	// Streamed is set once the response has already been delivered through Sink.
	Streamed bool
}

// Finish records the response and outcome of the turn.
func (t *TurnState) Finish(outcome Outcome, response string) *TurnState {
	t.Outcome = outcome
	t.Response = response
	return t
}
