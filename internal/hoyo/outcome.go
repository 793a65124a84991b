package hoyo

import "fmt"

// Kind tags the closed set of outcomes a remote action can produce.
// Ordinary business failures are outcomes, never Go errors.
type Kind string

const (
	// KindSuccess: the remote service performed the action.
	KindSuccess Kind = "success"
	// KindAlreadyDone: the action was already performed today / for this
	// code. Distinguishable from generic failure and terminal.
	KindAlreadyDone Kind = "already_done"
	// KindInvalidCredentials: the cookie bundle was rejected. Terminal
	// per account until the user relinks.
	KindInvalidCredentials Kind = "invalid_credentials"
	// KindNoGameAccount: no character/region exists for this game under
	// these credentials. Terminal per account and game.
	KindNoGameAccount Kind = "no_game_account"
	// KindRemoteRejected: any other non-zero status from the remote
	// service, carrying its raw code and message for diagnostics.
	KindRemoteRejected Kind = "remote_rejected"
	// KindTransportFailure: network error, timeout, non-200 response or
	// malformed body. The only retryable outcome.
	KindTransportFailure Kind = "transport_failure"
)

// Outcome is the classified result of one remote action.
type Outcome struct {
	Kind    Kind
	RetCode int
	Message string
}

func (o Outcome) String() string {
	if o.Kind == KindRemoteRejected {
		return fmt.Sprintf("%s (retcode=%d: %s)", o.Kind, o.RetCode, o.Message)
	}
	return string(o.Kind)
}

// Terminal reports whether the outcome must be recorded as attempted.
// Everything except a transport failure has been seen by the remote
// service and must never be retried.
func (o Outcome) Terminal() bool {
	return o.Kind != KindTransportFailure
}

func transportFailure(err error) Outcome {
	return Outcome{Kind: KindTransportFailure, Message: err.Error()}
}

// Check-in endpoint retcodes observed from the remote service.
const (
	retOK                = 0
	retCheckinAlready    = -5003
	retInvalidCookie     = -100
	retLoginRequired     = 10001
	retRedeemAlreadyUsed = -2017
	retRedeemClaimed     = -2018
	retRedeemExpired     = -2001
	retRedeemInvalid     = -2003
	retRedeemCooldown    = -2016
	retNoGameAccount     = -1073
)

func classifyCheckin(retcode int, message string) Outcome {
	switch retcode {
	case retOK:
		return Outcome{Kind: KindSuccess}
	case retCheckinAlready:
		return Outcome{Kind: KindAlreadyDone, RetCode: retcode, Message: message}
	case retInvalidCookie, retLoginRequired:
		return Outcome{Kind: KindInvalidCredentials, RetCode: retcode, Message: message}
	case retNoGameAccount:
		return Outcome{Kind: KindNoGameAccount, RetCode: retcode, Message: message}
	default:
		return Outcome{Kind: KindRemoteRejected, RetCode: retcode, Message: message}
	}
}

func classifyRedeem(retcode int, message string) Outcome {
	switch retcode {
	case retOK:
		return Outcome{Kind: KindSuccess}
	case retRedeemAlreadyUsed, retRedeemClaimed:
		return Outcome{Kind: KindAlreadyDone, RetCode: retcode, Message: message}
	case retInvalidCookie, retLoginRequired:
		return Outcome{Kind: KindInvalidCredentials, RetCode: retcode, Message: message}
	case retNoGameAccount:
		return Outcome{Kind: KindNoGameAccount, RetCode: retcode, Message: message}
	default:
		// Includes expired (-2001), malformed (-2003) and cooldown
		// (-2016) codes: all carry the raw retcode for diagnostics.
		return Outcome{Kind: KindRemoteRejected, RetCode: retcode, Message: message}
	}
}
