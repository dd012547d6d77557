package notifications

// Outcome is the result of trying to notify a subject about a confirmed event
type Outcome string

const (
	OutcomeNotAttempted Outcome = "not_attempted" // Confidence below the notify threshold (or nothing was confirmed)
	OutcomeDisabled     Outcome = "disabled"      // No bot credentials
	OutcomeNoRecipient  Outcome = "no_recipient"  // Subject has no chat to send to
	OutcomeCooldown     Outcome = "cooldown"      // Too soon after the previous attempt
	OutcomeSent         Outcome = "sent"          // Text and photo both delivered
	OutcomePartial      Outcome = "partial"       // Exactly one of text or photo delivered
	OutcomeError        Outcome = "error"         // Nothing delivered
)

var AllOutcomes = []Outcome{
	OutcomeNotAttempted,
	OutcomeDisabled,
	OutcomeNoRecipient,
	OutcomeCooldown,
	OutcomeSent,
	OutcomePartial,
	OutcomeError,
}

// Attempted is true if we tried to reach the transport (successfully or not)
func (o Outcome) Attempted() bool {
	return o == OutcomeSent || o == OutcomePartial || o == OutcomeError
}

func outcomeFromDeliveries(textOK, imageOK bool) Outcome {
	switch {
	case textOK && imageOK:
		return OutcomeSent
	case textOK || imageOK:
		return OutcomePartial
	}
	return OutcomeError
}
