package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dalemusser/stratasite/internal/app/bootstrap"
	"github.com/dalemusser/stratasite/internal/app/system/authutil"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/stratasite/internal/app/system/theme"
	"github.com/dalemusser/waffle/app"
	"github.com/spf13/cobra"
)

// errNoMatch makes check-password exit non-zero without extra output.
var errNoMatch = errors.New("password does not match")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "stratasite",
		Short:         "Marketing site and CMS admin API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newHashPasswordCmd(),
		newCheckPasswordCmd(),
		newScanCmd(),
		newThemeCSSCmd(),
	)
	return root
}

// newServeCmd hands the remaining arguments to WAFFLE, which parses its own
// flags (--http_port, --mongo_uri, ...) alongside env vars and config files.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "serve [waffle flags]",
		Short:              "Run the HTTP server",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Args = append([]string{os.Args[0]}, args...)
			return app.Run(cmd.Context(), bootstrap.Hooks)
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	var strong bool
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash (reads stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := argOrLine(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			validate := authutil.ValidatePassword
			if strong {
				validate = authutil.ValidateStrongPassword
			}
			if err := validate(pw); err != nil {
				return err
			}
			hash, err := authutil.HashPassword(pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().BoolVar(&strong, "strong", false, "require the admin password rules")
	return cmd
}

func newCheckPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-password <hash> [password]",
		Short: "Check a password against a bcrypt hash and report its strength",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := argOrLine(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			s := security.CheckPasswordStrength(pw)
			fmt.Fprintf(out, "strength: %s (%d/5)\n", s.Label, s.Score)
			if len(s.Missing) > 0 {
				fmt.Fprintf(out, "missing:  %s\n", strings.Join(s.Missing, ", "))
			}
			if !authutil.CheckPassword(pw, args[0]) {
				fmt.Fprintln(out, "match:    no")
				return errNoMatch
			}
			fmt.Fprintln(out, "match:    yes")
			return nil
		},
	}
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <text>",
		Short: "Run the request injection heuristics over text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, found := security.DetectInjection(strings.Join(args, " "))
			if !found {
				fmt.Fprintln(cmd.OutOrStdout(), "clean")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", t.Kind, t.Pattern)
			return nil
		},
	}
}

func newThemeCSSCmd() *cobra.Command {
	var (
		preset string
		list   bool
	)
	cmd := &cobra.Command{
		Use:   "theme-css",
		Short: "Print the CSS variables for a theme preset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				presets, err := theme.Presets()
				if err != nil {
					return err
				}
				for _, p := range presets {
					fmt.Fprintf(out, "%-10s %s (%s)\n", p.Name, p.Label, p.Mode)
				}
				return nil
			}
			p, ok := theme.PresetByName(preset)
			if !ok {
				return fmt.Errorf("unknown preset %q (see --list)", preset)
			}
			fmt.Fprint(out, theme.CSS(p.Config()))
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "default", "preset name")
	cmd.Flags().BoolVar(&list, "list", false, "list the available presets")
	return cmd
}

// argOrLine returns args[0], or the first line of r when args is empty.
func argOrLine(r io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password given")
	}
	return line, nil
}
