package runner

import (
	"os"
	"sort"
	"strings"
)

// SetEnv sets or replaces an environment variable in the env slice.
func SetEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// Getenv returns the value of key in env, or "".
func Getenv(env []string, key string) string {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return env[i][len(prefix):]
		}
	}
	return ""
}

// PrependPath returns env with dir placed first on its PATH.
func PrependPath(env []string, dir string) []string {
	path := Getenv(env, "PATH")
	if path == "" {
		return SetEnv(env, "PATH", dir)
	}
	return SetEnv(env, "PATH", dir+string(os.PathListSeparator)+path)
}

// Merge returns a copy of base with overrides applied in key order.
func Merge(base []string, overrides map[string]string) []string {
	env := append([]string(nil), base...)
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = SetEnv(env, k, overrides[k])
	}
	return env
}
