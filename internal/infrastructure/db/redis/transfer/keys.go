package transfer

const (
	keyPrefix = "devtrans:"
	expiryKey = keyPrefix + "expiry"
)

func transferKey(code string) string { return keyPrefix + "transfer:" + code }
func ownerKey(owner string) string   { return keyPrefix + "owner:" + owner }
