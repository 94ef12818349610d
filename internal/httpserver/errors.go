package httpserver

const (
	ErrInvalidJSON      = "invalid json"
	ErrBadBody          = "bad body"
	ErrDependency       = "dependency error"
	ErrNotFound         = "not found"
	ErrInvalidSignature = "invalid signature"
)
