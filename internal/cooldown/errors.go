package cooldown

import (
	"fmt"
	"strings"
)

// InvalidScopeError is returned when a guild-scoped cooldown is used outside a guild.
type InvalidScopeError struct {
	Scope Scope
}

func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("cooldown scope %q requires a guild id", string(e.Scope))
}

// UnknownScopeError is returned for a scope outside the recognized set.
type UnknownScopeError struct {
	Scope Scope
}

func (e *UnknownScopeError) Error() string {
	names := make([]string, 0, len(Scopes))
	for _, s := range Scopes {
		names = append(names, string(s))
	}
	return fmt.Sprintf("unknown cooldown scope %q (valid: %s)", string(e.Scope), strings.Join(names, ", "))
}

// MalformedDurationError is returned when a duration does not follow "<quantity> <unit>".
type MalformedDurationError struct {
	Value  any
	Reason string
}

func (e *MalformedDurationError) Error() string {
	return fmt.Sprintf("malformed cooldown duration %q: %s (expected \"<quantity> <unit>\" with unit one of %s)",
		fmt.Sprint(e.Value), e.Reason, strings.Join(unitNames, ", "))
}

// StoreError wraps a failed durable write. The cache may already hold the new state.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cooldown store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cooldown store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
