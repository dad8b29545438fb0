// Package flagx lets the config loaders of the server and the client parse
// their own subset of os.Args without tripping over each other's flags.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// ConfigFlags are the names that select a JSON config file.
var ConfigFlags = []string{"-c", "-config"}

// FilterArgs keeps only the arguments that belong to one of the allowed
// flags, together with their values. Like the flag package, it treats "-x"
// and "--x" as the same flag, so allowed names may use either spelling.
//
// Accepted forms:
//
//	-a 127.0.0.1:8080
//	--a=127.0.0.1:8080
//
// A value is only taken from the following argument when that argument does
// not itself start with "-". The result is never nil.
func FilterArgs(args []string, allowed []string) []string {
	known := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		known[flagName(name)] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, hasValue := strings.Cut(arg, "=")
		if !known[flagName(name)] {
			continue
		}
		out = append(out, arg)

		if !hasValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

func flagName(arg string) string {
	return strings.TrimLeft(arg, "-")
}

// ConfigPath returns the JSON config path given by -c or -config in args, or
// "" when neither is present. When both appear the last one wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.SetOutput(discard{})
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, ConfigFlags))

	return path
}

// JsonConfigFlags is ConfigPath applied to the process arguments.
func JsonConfigFlags() string {
	return ConfigPath(os.Args[1:])
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
