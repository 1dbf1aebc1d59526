package history

import "git.home.luguber.info/inful/tcide/internal/foundation/errors"

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.NewError(errors.CategoryHistory, "could not open history database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.NewError(errors.CategoryHistory, "failed to initialize history schema").Build()

	// ErrEventAppendFailed indicates appending an event failed.
	ErrEventAppendFailed = errors.NewError(errors.CategoryHistory, "failed to record history event").Build()

	// ErrEventQueryFailed indicates querying or scanning events failed.
	ErrEventQueryFailed = errors.NewError(errors.CategoryHistory, "failed to query history").Build()
)
