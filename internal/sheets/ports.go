package sheets

import (
	"context"

	"stocktrack/internal/core"
)

// Ports for outbound adapters.
type (
	// EntryArchiver persists recorded stock counts to an external spreadsheet.
	EntryArchiver interface {
		Append(ctx context.Context, e core.Entry) (rowRef string, err error)
	}
)
