package ports

import (
	"devtransfer/internal/domain/transfer"
)

// EventSink receives ledger events. Emit must not block the caller.
type EventSink interface {
	Emit(e transfer.Event)
}
