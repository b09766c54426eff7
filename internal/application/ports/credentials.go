package ports

type Credentials interface {
	// Identify maps an upload token to the owner it belongs to.
	Identify(token string) (owner string, ok bool)
	IsAdmin(identity string) bool
	VerifyAdmin(username, password string) bool
}
