package logger

const (
	Main     = "main"
	Sync     = "sync"
	Registry = "registry"
	Session  = "session"
	CoA      = "coa"
)
