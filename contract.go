package cacheplugin

const (
	pluginName = "cache"

	// ContractRoot is the reserved key a host queries for the plugin's self-description.
	ContractRoot = "system/elektra/modules/cache"

	// PluginVersion is reported under infos/version.
	PluginVersion = "1"

	contractStatus = "cache plugin waits for your orders"
)

// ExportedOperations lists the lifecycle operations the plugin exports, in
// contract order.
var ExportedOperations = []string{"open", "close", "get", "set", "error", "checkConfig"}

var contractInfos = [][2]string{
	{"author", "goforj"},
	{"licence", "BSD"},
	{"provides", "cache"},
	{"status", "unfinished nodep"},
	{"description", "caches key sets in a resolved per-user directory through a storage backend"},
	{"version", PluginVersion},
}

// Contract returns a fresh copy of the static descriptor.
func Contract() *KeySet {
	ks := NewKeySet(
		NewKey(ContractRoot, contractStatus),
		NewKey(ContractRoot+"/exports", ""),
	)
	for _, op := range ExportedOperations {
		ks.Append(NewKey(ContractRoot+"/exports/"+op, op))
	}
	for _, info := range contractInfos {
		ks.Append(NewKey(ContractRoot+"/infos/"+info[0], info[1]))
	}
	return ks
}

// Exports extracts the exported operation names from a descriptor.
func Exports(contract *KeySet) []string {
	var out []string
	prefix := ContractRoot + "/exports/"
	for _, op := range ExportedOperations {
		if _, ok := contract.Lookup(prefix + op); ok {
			out = append(out, op)
		}
	}
	return out
}
