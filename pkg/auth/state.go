// Package auth drives acquisition of an authenticated browser session
// against a magic-link login flow. The flow is modeled as an explicit state
// machine: a pure transition function maps (state, outcome) to the next state
// and the effect the controller must perform there, so the terminal and retry
// semantics are testable without a browser.
package auth

// State is the tagged authentication state, held only for the duration of
// one authentication attempt.
type State int

const (
	Unknown State = iota
	CheckingSession
	Authenticated
	RequestingMagicLink
	AwaitingMagicLink
	ConsumingMagicLink
	Failed
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case CheckingSession:
		return "checking_session"
	case Authenticated:
		return "authenticated"
	case RequestingMagicLink:
		return "requesting_magic_link"
	case AwaitingMagicLink:
		return "awaiting_magic_link"
	case ConsumingMagicLink:
		return "consuming_magic_link"
	case Failed:
		return "failed"
	default:
		return "invalid"
	}
}

// Terminal reports whether the machine stops in this state.
func (s State) Terminal() bool {
	return s == Authenticated || s == Failed
}

// Outcome is the result of performing a state's effect, fed back into the
// transition function.
type Outcome int

const (
	// OutcomeBegin starts the machine from Unknown.
	OutcomeBegin Outcome = iota

	// OutcomeSessionValid: the persisted session reached protected content.
	OutcomeSessionValid

	// OutcomeSessionInvalid: the probe failed, including navigation errors.
	OutcomeSessionInvalid

	// OutcomeLinkRequested: the login form was submitted.
	OutcomeLinkRequested

	// OutcomeLinkReceived: the hand-off slot yielded a URL.
	OutcomeLinkReceived

	// OutcomeLinkAccepted: visiting the link produced an authenticated page.
	OutcomeLinkAccepted

	// OutcomeFault: a classified fatal error occurred.
	OutcomeFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBegin:
		return "begin"
	case OutcomeSessionValid:
		return "session_valid"
	case OutcomeSessionInvalid:
		return "session_invalid"
	case OutcomeLinkRequested:
		return "link_requested"
	case OutcomeLinkReceived:
		return "link_received"
	case OutcomeLinkAccepted:
		return "link_accepted"
	case OutcomeFault:
		return "fault"
	default:
		return "invalid"
	}
}

// Effect is the action the controller performs upon entering a state.
type Effect int

const (
	// EffectNone: nothing to do; the state is terminal.
	EffectNone Effect = iota

	// EffectCheckSession: load the persisted session and probe the
	// protected page.
	EffectCheckSession

	// EffectRequestLink: drive the login form to send a magic link.
	EffectRequestLink

	// EffectAwaitLink: block on the hand-off slot until a URL appears.
	EffectAwaitLink

	// EffectConsumeLink: visit the link and re-run the authenticated check.
	EffectConsumeLink

	// EffectFinalize: persist the session, then clear the consumed token.
	// The ordering is load-bearing; see Controller.finalize.
	EffectFinalize
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectCheckSession:
		return "check_session"
	case EffectRequestLink:
		return "request_link"
	case EffectAwaitLink:
		return "await_link"
	case EffectConsumeLink:
		return "consume_link"
	case EffectFinalize:
		return "finalize"
	default:
		return "invalid"
	}
}

// Next is the transition function. Any outcome not defined for the current
// state, and OutcomeFault from anywhere, lands in Failed. Failed is terminal:
// the machine never retries within a run.
func Next(s State, o Outcome) (State, Effect) {
	if o == OutcomeFault {
		return Failed, EffectNone
	}

	switch s {
	case Unknown:
		if o == OutcomeBegin {
			return CheckingSession, EffectCheckSession
		}
	case CheckingSession:
		switch o {
		case OutcomeSessionValid:
			return Authenticated, EffectNone
		case OutcomeSessionInvalid:
			return RequestingMagicLink, EffectRequestLink
		}
	case RequestingMagicLink:
		if o == OutcomeLinkRequested {
			return AwaitingMagicLink, EffectAwaitLink
		}
	case AwaitingMagicLink:
		if o == OutcomeLinkReceived {
			return ConsumingMagicLink, EffectConsumeLink
		}
	case ConsumingMagicLink:
		if o == OutcomeLinkAccepted {
			return Authenticated, EffectFinalize
		}
	}

	return Failed, EffectNone
}
