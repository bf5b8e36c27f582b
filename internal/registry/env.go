package registry

import (
	"encoding/json"
	"os"
	"strings"
)

// processEnviron returns the current process environment as a map, the
// base a server's extra env entries get merged into before the subprocess
// is spawned.
func processEnviron() map[string]string {
	out := make(map[string]string)
	for _, e := range os.Environ() {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			out[parts[0]] = parts[1]
		}
	}
	return out
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	return v, ok
}

func marshalSchema(schema map[string]interface{}) ([]byte, error) {
	if schema == nil {
		schema = map[string]interface{}{"type": "object"}
	}
	return json.Marshal(schema)
}
