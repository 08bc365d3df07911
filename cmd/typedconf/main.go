// Command typedconf manages the configuration file of a small demo service.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/reoring/typedconf"
	"github.com/reoring/typedconf/cli"
	"github.com/reoring/typedconf/file"
)

// Service is the demo configuration schema.
type Service struct {
	Listen  Listen            `conf:"listen" doc:"Network settings."`
	Log     Logging           `conf:"log"`
	Mode    string            `conf:"mode" default:"normal" enum:"normal,maintenance" doc:"Operating mode."`
	Workers int               `conf:"workers" default:"4"`
	Labels  map[string]string `conf:"labels"`
	Admins  []string          `conf:"admins" default:"[root]"`
}

// Listen configures the listener.
type Listen struct {
	Host    string        `conf:"host" default:"127.0.0.1"`
	Port    int           `conf:"port" default:"8080"`
	Timeout time.Duration `conf:"timeout" default:"30s" doc:"Read timeout, e.g. 30s or 1m."`
}

// Logging configures the service logs.
type Logging struct {
	Level string  `conf:"level" default:"info" enum:"debug,info,warn,error"`
	File  *string `conf:"file" doc:"Log to this file instead of stderr."`
}

func (Service) ConfOptions() typedconf.TypeOptions {
	return typedconf.TypeOptions{Doc: "Configuration of the typedconf demo service."}
}

var verbose bool

func main() {
	root := &cobra.Command{
		Use:          "typedconf",
		Short:        "Typed configuration file manager",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log loading and validation")

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	cobra.OnInitialize(func() {
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	})
	root.AddCommand(cli.NewCommand[Service](cli.WithFileOptions(file.WithLogger(logger))))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
