package eventstore

import (
	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
)

// Sentinel errors of the build history. They are wrapped with WithCause where a
// cause exists.
var (
	ErrDatabaseOpenFailed     = errors.HistoryError("could not open build history database").Build()
	ErrInitializeSchemaFailed = errors.HistoryError("failed to initialize build history schema").Build()
	ErrEventAppendFailed      = errors.HistoryError("failed to append event to build history").Build()
	ErrEventQueryFailed       = errors.HistoryError("failed to query build history").Build()
	ErrMarshalPayloadFailed   = errors.HistoryError("failed to marshal event payload").Build()
)

func historyError(sentinel *errors.ClassifiedError, cause error) error {
	return errors.WrapError(cause, errors.CategoryHistory, sentinel.Message()).Build()
}
