package cacheplugin

// Request is what a host asks of Get: either the plugin's self-description or a
// data operation below a parent key.
type Request interface {
	request()
}

// Introspect asks for the static contract. It never reaches the backend.
type Introspect struct{}

// DataOp asks for cached keys below Key.
type DataOp struct {
	Key string
}

func (Introspect) request() {}
func (DataOp) request()     {}

// RequestFor classifies a parent key name.
func RequestFor(name string) Request {
	if cleanName(name) == ContractRoot {
		return Introspect{}
	}
	return DataOp{Key: cleanName(name)}
}
