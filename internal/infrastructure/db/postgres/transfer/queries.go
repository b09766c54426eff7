package transfer

const (
	InsertTransfer = `
		INSERT INTO transfers (code, filename, location, size, expiry, policy, owner, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	SelectTransferByCode = `
		SELECT code, filename, location, size, expiry, policy, owner, state, created_at
		FROM transfers
		WHERE code = $1
	`
	ActivateTransfer = `
		UPDATE transfers
		SET location = $2,
		    size = $3,
		    state = 'active'
		WHERE code = $1 AND state = 'pending'
	`
	UpdateTransferState = `
		UPDATE transfers
		SET state = $3
		WHERE code = $1 AND state = ANY($2)
	`
	SelectTransfersByOwner = `
		SELECT code, filename, location, size, expiry, policy, owner, state, created_at
		FROM transfers
		WHERE owner = $1 AND state = 'active' AND expiry > $2
		ORDER BY created_at DESC
	`
	SelectActiveTransfers = `
		SELECT code, filename, location, size, expiry, policy, owner, state, created_at
		FROM transfers
		WHERE state = 'active' AND expiry > $1
		ORDER BY created_at DESC
	`
	SelectExpiredTransfers = `
		SELECT code, filename, location, size, expiry, policy, owner, state, created_at
		FROM transfers
		WHERE expiry <= $1
		  AND (state = 'active' OR (state = 'pending' AND created_at <= $2))
		ORDER BY expiry
		LIMIT $3
	`
)
