package wizard

import "maps"

// StepID identifies one form step of the wizard.
type StepID string

const (
	StepMethodChoice       StepID = "method-choice"
	StepManualCredentials  StepID = "manual-credentials"
	StepO365Credentials    StepID = "o365-credentials"
	StepInteractiveConsent StepID = "interactive-consent"
	StepResourceSelection  StepID = "resource-selection"
	StepCustomImagePath    StepID = "custom-image-path"

	StepReauthConfirm StepID = "reauth-confirm"

	StepOptionsInit              StepID = "options-init"
	StepOptionsResourceSelection StepID = "options-resource-selection"
	StepOptionsCustomImagePath   StepID = "options-custom-image-path"
)

// Mode selects which entry point the step graph was entered through.
type Mode string

const (
	ModeCreate  Mode = "create"
	ModeReauth  Mode = "reauth"
	ModeOptions Mode = "options"
)

// Outcome marks a terminal state.
type Outcome string

const (
	OutcomeNone             Outcome = ""
	OutcomeCreated          Outcome = "created"
	OutcomeUpdated          Outcome = "updated"
	OutcomeReauthSuccessful Outcome = "reauth_successful"
	OutcomeAborted          Outcome = "aborted"
)

// State is the explicit, serializable wizard state threaded through the step
// transition functions. Accumulated fields are never cleared between steps;
// later steps may read earlier ones.
type State struct {
	Step    StepID
	Mode    Mode
	EntryID string

	// Data accumulates every submitted field across steps.
	Data map[string]any
	// Errors maps field name (or "base") to an error code for the current
	// step's render.
	Errors map[string]string
	// Folders holds the discovered mailbox names offered at the
	// resource-selection step.
	Folders []string

	Outcome Outcome
}

// Terminal reports whether the flow has finished.
func (s State) Terminal() bool {
	return s.Outcome != OutcomeNone
}

func (s *State) mergeInput(input map[string]any) {
	maps.Copy(s.Data, input)
}

func getString(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func getInt(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func getBool(data map[string]any, key string) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return false
}
