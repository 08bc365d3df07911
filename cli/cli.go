// Package cli provides a cobra command tree for inspecting and editing a
// file-backed typed configuration.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reoring/typedconf"
	"github.com/reoring/typedconf/file"
)

// Option configures the command tree.
type Option func(*options)

type options struct {
	use      string
	fileOpts []file.Option
	reg      *typedconf.Registry
	launch   func(path string) error
}

// WithUse renames the root command (default "config").
func WithUse(use string) Option { return func(o *options) { o.use = use } }

// WithFileOptions forwards options to file.Open.
func WithFileOptions(opts ...file.Option) Option {
	return func(o *options) { o.fileOpts = append(o.fileOpts, opts...) }
}

// WithRegistry sets the registry for loading and for schema output.
func WithRegistry(r *typedconf.Registry) Option { return func(o *options) { o.reg = r } }

// WithLauncher replaces the editor launcher used by --edit.
func WithLauncher(fn func(path string) error) Option { return func(o *options) { o.launch = fn } }

// NewCommand returns the "config" command for configuration type T.
func NewCommand[T any](opts ...Option) *cobra.Command {
	o := options{use: "config", launch: openEditor}
	for _, fn := range opts {
		fn(&o)
	}
	if o.reg == nil {
		o.reg = typedconf.DefaultRegistry()
	}
	open := func() (*file.File[T], error) {
		fo := append([]file.Option{file.WithRegistry(o.reg)}, o.fileOpts...)
		return file.Open[T](fo...)
	}

	var edit bool
	root := &cobra.Command{
		Use:   o.use,
		Short: "Manage the configuration file",
		Long: `Manage the configuration file.

The file location is taken from $` + file.EnvConfigFile + ` and defaults to
./config.yaml. A missing file is created with documented defaults.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !edit {
				return cmd.Help()
			}
			f, err := open()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opening configuration file: %s\n", f.Path())
			return o.launch(f.Path())
		},
	}
	root.Flags().BoolVarP(&edit, "edit", "e", false, "edit the configuration")

	root.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: "Show the current configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				f, err := open()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), f.Config().String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := resolvePath(o.fileOpts)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), p)
				return nil
			},
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Print the JSON Schema of the configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := typedconf.SchemaFor[T](o.reg, nil)
				if err != nil {
					return err
				}
				b, err := json.MarshalIndent(s, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				f, err := open()
				if err != nil {
					var iss typedconf.Issues
					if errors.As(err, &iss) {
						for _, it := range iss {
							fmt.Fprintf(cmd.ErrOrStderr(), "  ✗ %s\n", it.String())
						}
					}
					return fmt.Errorf("config error: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  ✓ %s is valid\n", f.Path())
				return nil
			},
		},
		&cobra.Command{
			Use:   "defaults",
			Short: "Print the default configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := typedconf.DefaultYAML[T](o.reg)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(s, "\n"))
				return nil
			},
		},
	)
	return root
}

// resolvePath mirrors file.Open's location rules without touching the disk.
func resolvePath(opts []file.Option) (string, error) {
	if p := file.PathFromOptions(opts...); p != "" {
		return file.ExpandPath(p)
	}
	return file.Path()
}

// openEditor opens path in $VISUAL or $EDITOR, falling back to the desktop
// opener of the platform.
func openEditor(path string) error {
	var cmd *exec.Cmd
	if ed := firstNonEmpty(os.Getenv("VISUAL"), os.Getenv("EDITOR")); ed != "" {
		parts := strings.Fields(ed)
		cmd = exec.Command(parts[0], append(parts[1:], path)...)
	} else {
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", path)
		case "windows":
			cmd = exec.Command("cmd", "/c", "start", "", path)
		default:
			cmd = exec.Command("xdg-open", path)
		}
	}
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open the configuration editor: %w", err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
