package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DependencyFlag names a precondition an MCP server needs before it can be
// spawned, checked by the registry's screening pass before it attempts to
// start the subprocess.
type DependencyFlag string

const (
	NeedsNodeJS DependencyFlag = "NEEDS_NODEJS"
	NeedsUVX    DependencyFlag = "NEEDS_UVX"
	NeedsOnline DependencyFlag = "NEEDS_ONLINE"
	// NeedsEnvPrefix flags are of the form "NEEDS_ENV:VARNAME".
	NeedsEnvPrefix = "NEEDS_ENV:"
)

// manifestMarkerKeys are the flat-env-map marker keys a manifest author may
// set, translated into the NEEDS_* flags above and stripped from the env
// map actually passed to the subprocess.
const (
	markerRequiresNodeJS = "REQUIRES_NODEJS"
	markerRequireUVX     = "REQUIRE_UVX"
	markerRequiresOnline = "REQUIRES_ONLINE"
	markerRequiresEnv    = "REQUIRES_ENV"
)

// ServerDescriptor is the registry's resolved view of one manifest entry:
// the real subprocess command/env plus the dependency flags extracted from
// it.
type ServerDescriptor struct {
	Name            string
	Command         string
	Args            []string
	Env             map[string]string
	DependencyFlags []string
	Disabled        bool
	Priority        int
	InitTimeout     int
}

// ExtractDependencyFlags splits a manifest server's flat env map into the
// real subprocess environment and the dependency-screening flags encoded as
// marker keys within it. REQUIRES_ENV may appear multiple times with a
// "REQUIRES_ENV" key whose value is a comma-separated list of variable
// names, since a flat map can't repeat a key.
func ExtractDependencyFlags(env map[string]string) (flags []string, cleanEnv map[string]string) {
	cleanEnv = make(map[string]string, len(env))
	for k, v := range env {
		switch k {
		case markerRequiresNodeJS:
			if isTruthy(v) {
				flags = append(flags, string(NeedsNodeJS))
			}
		case markerRequireUVX:
			if isTruthy(v) {
				flags = append(flags, string(NeedsUVX))
			}
		case markerRequiresOnline:
			if isTruthy(v) {
				flags = append(flags, string(NeedsOnline))
			}
		case markerRequiresEnv:
			for _, name := range strings.Split(v, ",") {
				name = strings.TrimSpace(name)
				if name != "" {
					flags = append(flags, NeedsEnvPrefix+name)
				}
			}
		default:
			cleanEnv[k] = v
		}
	}
	sort.Strings(flags)
	return flags, cleanEnv
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// ResolveServerDescriptors converts every enabled MCPServerConfig entry in
// the config into a ServerDescriptor ready for the registry to screen and
// connect, ordered by descending Priority and then by server name.
func ResolveServerDescriptors(servers map[string]MCPServerConfig) []ServerDescriptor {
	descriptors := make([]ServerDescriptor, 0, len(servers))
	for name, sc := range servers {
		if sc.Disabled {
			continue
		}
		flags, cleanEnv := ExtractDependencyFlags(sc.Env)
		descriptors = append(descriptors, ServerDescriptor{
			Name:            name,
			Command:         sc.Command,
			Args:            sc.Args,
			Env:             cleanEnv,
			DependencyFlags: flags,
			Disabled:        sc.Disabled,
			Priority:        sc.Priority,
			InitTimeout:     sc.GetInitializeTimeout(),
		})
	}
	sort.SliceStable(descriptors, func(i, j int) bool {
		if descriptors[i].Priority != descriptors[j].Priority {
			return descriptors[i].Priority > descriptors[j].Priority
		}
		return descriptors[i].Name < descriptors[j].Name
	})
	return descriptors
}

// defaultManifest is written out the first time EnsureManifestFile is asked
// for a path that doesn't exist yet, so a fresh checkout has something to edit.
var defaultManifest = Config{
	Version: "1.0",
	MCPServers: map[string]MCPServerConfig{
		"filesystem": {
			Command: "npx",
			Args:    []string{"-y", "@modelcontextprotocol/server-filesystem", "${WORKSPACE_PATH}"},
			Env:     map[string]string{markerRequiresNodeJS: "true"},
		},
	},
}

// EnsureManifestFile writes a starter manifest at path if nothing exists
// there yet, mirroring the way a fresh install needs a first config.json.
func EnsureManifestFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(defaultManifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ExpandWorkspacePath resolves the placeholders the file-writing tool's
// workspace root may be configured with: ${USER_DOCUMENTS}, ${JAR_DIR},
// a leading ~/, or a relative ./ path, all anchored the same way a desktop
// app resolves a user-chosen save directory.
func ExpandWorkspacePath(path string) string {
	switch {
	case strings.Contains(path, "${USER_DOCUMENTS}"):
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		return strings.ReplaceAll(path, "${USER_DOCUMENTS}", filepath.Join(home, "Documents"))
	case strings.Contains(path, "${JAR_DIR}"):
		exe, err := os.Executable()
		if err != nil {
			return strings.ReplaceAll(path, "${JAR_DIR}", ".")
		}
		return strings.ReplaceAll(path, "${JAR_DIR}", filepath.Dir(exe))
	case strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	default:
		abs, err := filepath.Abs(path)
		if err != nil {
			return path
		}
		return abs
	}
}
