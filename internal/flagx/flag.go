// Package flagx lets independent loaders pick their own flags out of a
// shared argument list without tripping over each other's flags.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// name strips one or two leading dashes, so "-c" and "--c" are the same flag.
func name(arg string) string {
	return strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
}

// FilterArgs keeps only the flags listed in allowed (with their values) and
// drops everything else, positional arguments included.
//
// Both "-c conf.json" and "-c=conf.json" forms are recognized. Names in
// allowed may be written with one or two dashes; the match ignores the
// dash count.
func FilterArgs(args []string, allowed []string) []string {
	known := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		known[name(f)] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		if before, _, ok := strings.Cut(arg, "="); ok {
			if _, ok := known[name(before)]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := known[name(arg)]; !ok {
			continue
		}
		filtered = append(filtered, arg)

		// a following non-flag token is this flag's value
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigPath returns the value of -c / -config from args, or "" when neither
// is present.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}
