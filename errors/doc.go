// Package errors provides standardized error handling patterns for the StellaNow SDK.
//
// # Overview
//
// The errors package implements a three-class error classification system: Transient
// (temporary, retryable), Invalid (bad input, non-retryable), and Fatal (unrecoverable,
// stop processing). The delivery pipeline maps its failure taxonomy onto these classes:
//
//   - Configuration errors (missing identifiers or credentials): Fatal, raised at construction
//   - Authentication errors (discovery, grant, token validation): Transient, retried by the sink
//   - Transport errors (publish failure, connection loss): Transient, force a reconnect cycle
//   - Message contract violations (no entity references, bad payload): Invalid, fail one send
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Sink", "Publish", "publish event")
//	errors.WrapInvalid(err, "SDK", "SendMessage", "derive event key")
//	errors.WrapFatal(err, "Config", "Validate", "organization id")
//
// Join tags a third-party error with one of the package sentinels so both stay
// reachable through errors.Is:
//
//	return errors.WrapTransient(errors.Join(errors.ErrGrantFailed, err),
//	    "OIDCStrategy", "Authenticate", "password grant")
//
// # Standard Error Variables
//
//   - Lifecycle: ErrAlreadyStarted, ErrNotStarted
//   - Transport: ErrNotConnected, ErrConnectionLost, ErrConnectionTimeout, ErrPublishFailed
//   - Authentication: ErrDiscoveryFailed, ErrGrantFailed, ErrInvalidToken
//   - Message model: ErrNoEntityReferences, ErrInvalidPayload
//   - Configuration: ErrInvalidConfig, ErrMissingConfig
//
// Note that this package shadows the standard library errors package. Files that need
// both import the standard one as stderrors.
package errors
