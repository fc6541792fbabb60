// Package cli holds helpers shared by the cobra commands.
package cli

import "github.com/spf13/pflag"

// HasFlags reports whether any flag of flags was set on the command line.
func HasFlags(flags *pflag.FlagSet) bool {
	changed := false
	flags.Visit(func(*pflag.Flag) {
		changed = true
	})
	return changed
}
