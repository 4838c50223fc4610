package toolchain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/papercraft-labs/pcrelease/internal/fsutil"
)

// writeShim writes a POSIX sh wrapper that rewrites arguments per replace and
// then execs target. target must be an absolute path so the shim cannot
// resolve to itself through the job PATH.
func writeShim(path, target string, replace map[string]string) error {
	return fsutil.WriteFile(path, []byte(shimScript(target, replace)), 0755)
}

func shimScript(target string, replace map[string]string) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "# generated by pcrelease: forwards to %s\n", target)
	b.WriteString("for arg do\n")
	b.WriteString("  shift\n")
	if len(replace) > 0 {
		from := make([]string, 0, len(replace))
		for k := range replace {
			from = append(from, k)
		}
		sort.Strings(from)

		// Patterns are escaped so glob characters in a flag match literally.
		b.WriteString("  case \"$arg\" in\n")
		for _, k := range from {
			fmt.Fprintf(&b, "    %s) arg=%s ;;\n", shellquote.Join(k), shellquote.Join(replace[k]))
		}
		b.WriteString("  esac\n")
	}
	b.WriteString("  set -- \"$@\" \"$arg\"\n")
	b.WriteString("done\n")
	fmt.Fprintf(&b, "exec %s \"$@\"\n", shellquote.Join(target))
	return b.String()
}
