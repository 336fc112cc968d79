package cacheplugin

// Status is the result code every handler reports to the host.
type Status int

const (
	StatusError    Status = -1
	StatusNoUpdate Status = 0
	StatusSuccess  Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusNoUpdate:
		return "no_update"
	case StatusSuccess:
		return "success"
	default:
		return "unknown"
	}
}
