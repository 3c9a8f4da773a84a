// Package flagx lets several components share one command line: each of
// them filters os.Args down to the flags it owns before handing the result
// to its own flag.FlagSet.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns the arguments that belong to allowedFlags. Every
// allowed flag is assumed to take a value.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.json
//  2. Flag and value combined with '=':      --config=conf.json
func FilterArgs(args []string, allowedFlags []string) []string {
	return Set{Value: allowedFlags}.Filter(args)
}

// Set describes the flags owned by one component. Value flags consume the
// following argument unless it looks like another flag; Bool flags never do.
type Set struct {
	Value []string
	Bool  []string
}

// Filter returns the subset of args owned by s, in their original order.
// The result is never nil.
func (s Set) Filter(args []string) []string {
	takesValue := make(map[string]bool, len(s.Value)+len(s.Bool))
	for _, f := range s.Value {
		takesValue[f] = true
	}
	for _, f := range s.Bool {
		takesValue[f] = false
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "-f=value" / "--flag=value"
		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := takesValue[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		value, ok := takesValue[arg]
		if !ok {
			continue
		}
		filtered = append(filtered, arg)
		if value && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigFileFlag extracts the config file path given with -c or -config.
// Other arguments are ignored. It returns "" when neither flag is present.
func ConfigFileFlag(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config"}))

	return path
}
