package model

// BackendMode selects which backend serves reads and writes for the process lifetime.
type BackendMode int

const (
	BackendRemote BackendMode = iota
	BackendLocalFallback
)

func (m BackendMode) String() string {
	switch m {
	case BackendRemote:
		return "remote"
	case BackendLocalFallback:
		return "local-fallback"
	default:
		return "unknown"
	}
}
