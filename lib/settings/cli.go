package settings

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const configUsage = `Usage:
  etherdoc config show            every key with its env var, value and default
  etherdoc config dump            the effective settings as JSON
  etherdoc config env             env var to key mapping
  etherdoc config get <json-key>  one effective value
  etherdoc config init            a settings.json holding every default`

// HandleConfigCommand runs "etherdoc config ..." on stdout and exits.
func HandleConfigCommand(logger *zap.SugaredLogger) {
	os.Exit(RunConfigCommand(os.Stdout, os.Args[2:], func() { InitSettings(logger) }))
}

// RunConfigCommand writes the output of one config subcommand to w and
// returns the exit code. load reads the settings file for the subcommands
// that show effective values.
func RunConfigCommand(w io.Writer, args []string, load func()) int {
	if len(args) == 0 {
		fmt.Fprintln(w, configUsage)
		return 1
	}
	ApplyRegistryDefaults()
	switch args[0] {
	case "show":
		load()
		configShow(w)
	case "dump":
		load()
		return writeJSON(w, viper.AllSettings())
	case "env":
		configEnv(w)
	case "get":
		load()
		return configGet(w, args[1:])
	case "init":
		return writeJSON(w, defaultsTree())
	default:
		fmt.Fprintf(w, "unknown config command %q\n%s\n", args[0], configUsage)
		return 1
	}
	return 0
}

func configShow(w io.Writer) {
	fmt.Fprintf(w, "%-35s %-35s %-20s %-20s %s\n", "JSON KEY", "ENV VAR", "CURRENT", "DEFAULT", "DESCRIPTION")
	for _, c := range Registry {
		fmt.Fprintf(w, "%-35s %-35s %-20v %-20v %s\n", c.Key, EnvVar(c.Key), viper.Get(c.Key), c.Default, c.Description)
	}
}

func configEnv(w io.Writer) {
	fmt.Fprintf(w, "%-35s %s\n", "ENV VAR", "JSON KEY")
	for _, c := range Registry {
		fmt.Fprintf(w, "%-35s %s\n", EnvVar(c.Key), c.Key)
	}
}

func configGet(w io.Writer, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(w, "usage: etherdoc config get <json-key>")
		return 1
	}
	for _, c := range Registry {
		if c.Key == args[0] {
			fmt.Fprintln(w, viper.Get(c.Key))
			return 0
		}
	}
	fmt.Fprintf(w, "unknown config key %q\n", args[0])
	return 1
}

// defaultsTree nests the dotted registry keys, so "editor.indentStep"
// lands under "editor".
func defaultsTree() map[string]any {
	out := map[string]any{}
	for _, c := range Registry {
		parts := strings.Split(c.Key, ".")
		target := out
		for _, part := range parts[:len(parts)-1] {
			next, ok := target[part].(map[string]any)
			if !ok {
				next = map[string]any{}
				target[part] = next
			}
			target = next
		}
		target[parts[len(parts)-1]] = c.Default
	}
	return out
}

func writeJSON(w io.Writer, v any) int {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(w, "error:", err)
		return 1
	}
	fmt.Fprintln(w, string(b))
	return 0
}
