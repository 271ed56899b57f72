package request

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eva-app/evaclient/pkg/models"
)

var (
	// ErrAuthExpired is returned when the server rejects the session token.
	// The session has already been cleared when a caller sees it.
	ErrAuthExpired = errors.New("session expired")

	// ErrNetwork is matched by every *NetworkError.
	ErrNetwork = errors.New("network unavailable")

	// ErrNoEnvelope means the server replied without a {code,msg,data} body.
	ErrNoEnvelope = errors.New("response has no envelope")
)

// BusinessError is a request the server understood but refused.
// Msg is safe to show to the user.
type BusinessError struct {
	Code int
	Msg  string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("request rejected (code %d): %s", e.Code, e.Msg)
}

// NetworkError is a transport-level failure. Callers may retry it.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return ErrNetwork.Error()
	}
	return fmt.Sprintf("%s: %v", ErrNetwork, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNetwork}
	}
	return []error{ErrNetwork, e.Err}
}

// Kind tags how a call settled.
type Kind int

const (
	KindOK Kind = iota
	KindBusiness
	KindAuthExpired
	KindNetwork
)

func (k Kind) String() string {
	return string(k.Outcome())
}

// Outcome maps the kind onto the tracker's outcome labels.
func (k Kind) Outcome() models.Outcome {
	switch k {
	case KindBusiness:
		return models.OutcomeBusiness
	case KindAuthExpired:
		return models.OutcomeAuthExpired
	case KindNetwork:
		return models.OutcomeNetwork
	default:
		return models.OutcomeOK
	}
}

// KindOf classifies an error returned by the orchestrator. Errors that did
// not come from a dispatch (for example an abandoned context) report
// KindNetwork.
func KindOf(err error) Kind {
	var be *BusinessError
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, ErrAuthExpired):
		return KindAuthExpired
	case errors.As(err, &be):
		return KindBusiness
	default:
		return KindNetwork
	}
}

// Result is the settled outcome of one dispatch, shared by every caller
// coalesced onto it.
type Result struct {
	Kind Kind
	Data json.RawMessage
	Code int
	Msg  string
	Err  error
}

// Value returns the data for KindOK and the typed error otherwise.
func (r Result) Value() (json.RawMessage, error) {
	if r.Kind == KindOK {
		return r.Data, nil
	}
	return nil, r.Err
}

func okResult(code int, data json.RawMessage) Result {
	return Result{Kind: KindOK, Code: code, Data: data}
}

func businessResult(code int, msg string) Result {
	return Result{Kind: KindBusiness, Code: code, Msg: msg, Err: &BusinessError{Code: code, Msg: msg}}
}

func authExpiredResult(msg string) Result {
	return Result{Kind: KindAuthExpired, Code: 401, Msg: msg, Err: ErrAuthExpired}
}

func networkResult(err error) Result {
	return Result{Kind: KindNetwork, Err: &NetworkError{Err: err}}
}
