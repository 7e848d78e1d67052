package lookup

import (
	"errors"
	"fmt"
)

// FetchErrorKind distinguishes the two terminal failure modes of a lookup.
// The orchestrator's refund decision depends on which one occurred.
type FetchErrorKind int

const (
	// KindTransport means every source failed with a network, timeout or
	// HTTP error before producing a response.
	KindTransport FetchErrorKind = iota
	// KindNotFound means at least one source responded but none yielded
	// usable data for the number.
	KindNotFound
)

type FetchError struct {
	Kind   FetchErrorKind
	Number string
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("no data found for %s", e.Number)
	default:
		if e.Err != nil {
			return fmt.Sprintf("lookup for %s failed: %v", e.Number, e.Err)
		}
		return fmt.Sprintf("lookup for %s failed", e.Number)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func NewNotFoundError(number string) error {
	return &FetchError{Kind: KindNotFound, Number: number}
}

func NewTransportError(number string, err error) error {
	return &FetchError{Kind: KindTransport, Number: number, Err: err}
}

func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindNotFound
}

func IsTransport(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindTransport
}
