package transfer

import "strings"

const (
	columns = `code, filename, location, size, expiry, policy, owner, state, created_at`

	InsertTransfer = `
		INSERT INTO transfers (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO NOTHING
	`
	SelectTransferByCode = `SELECT ` + columns + ` FROM transfers WHERE code = ?`
	ActivateTransfer     = `
		UPDATE transfers
		SET location = ?, size = ?, state = 'active'
		WHERE code = ? AND state = 'pending'
	`
	SelectTransfersByOwner = `
		SELECT ` + columns + ` FROM transfers
		WHERE owner = ? AND state = 'active' AND expiry > ?
		ORDER BY created_at DESC
	`
	SelectActiveTransfers = `
		SELECT ` + columns + ` FROM transfers
		WHERE state = 'active' AND expiry > ?
		ORDER BY created_at DESC
	`
	SelectExpiredTransfers = `
		SELECT ` + columns + ` FROM transfers
		WHERE expiry <= ?
		  AND (state = 'active' OR (state = 'pending' AND created_at <= ?))
		ORDER BY expiry
		LIMIT ?
	`
)

// updateState builds the conditional state flip for n source states.
func updateState(n int) string {
	return `UPDATE transfers SET state = ? WHERE code = ? AND state IN (` +
		strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + `)`
}
