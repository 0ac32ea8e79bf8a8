package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/credwallet/internal/record"
)

// NewSettingCommand creates the setting command group.
func NewSettingCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "setting",
		Aliases: []string{"settings"},
		Short:   "Manage wallet settings",
	}

	cmd.AddCommand(newSettingAddCommand(rootOpts))
	cmd.AddCommand(newSettingSetCommand(rootOpts))
	cmd.AddCommand(newSettingGetCommand(rootOpts))
	cmd.AddCommand(newSettingListCommand(rootOpts))
	cmd.AddCommand(newSettingDeleteCommand(rootOpts))

	return cmd
}

func newSettingAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add KEY VALUE",
		Short: "Create a setting that does not exist yet",
		Long: `Create a setting. Fails if KEY already exists; use "setting set" to
replace a value. VALUE must be a JSON value; quote strings.

Examples:
  wallet setting add theme '"dark"'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value, err := settingArgs(args)
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(s *session) error {
				if err := s.guard.PutSetting(s.ctx, record.Setting{Key: key, Value: value}); err != nil {
					return failed("failed to add setting", err)
				}
				return s.out.Success(map[string]string{"key": key}, func(w io.Writer) {
					fmt.Fprintf(w, "Added %s\n", key)
				})
			})
		},
	}
}

// settingArgs splits KEY VALUE and checks VALUE is JSON.
func settingArgs(args []string) (string, json.RawMessage, error) {
	key, value := args[0], json.RawMessage(args[1])
	if !json.Valid(value) {
		return "", nil, NewExitError(ExitCommandError, fmt.Sprintf("value for %q is not valid JSON: %s", key, args[1]))
	}
	return key, value, nil
}

func newSettingSetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Create or replace a setting",
		Long: `Create or replace a setting. VALUE must be a JSON value; quote strings.

Examples:
  wallet setting set theme '"dark"'
  wallet setting set biometrics '{"enabled":true,"timeout":30}'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value, err := settingArgs(args)
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(s *session) error {
				if err := s.guard.SetSetting(s.ctx, record.Setting{Key: key, Value: value}); err != nil {
					return failed("failed to set setting", err)
				}
				return s.out.Success(map[string]string{"key": key}, func(w io.Writer) {
					fmt.Fprintf(w, "Set %s\n", key)
				})
			})
		},
	}
}

func newSettingGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get KEY",
		Short:         "Show one setting",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			return withSession(cmd, opts, func(s *session) error {
				setting, err := s.guard.MustGetSetting(s.ctx, key)
				if err != nil {
					return failed("failed to get setting", err)
				}
				return s.out.Success(setting, func(w io.Writer) {
					fmt.Fprintln(w, string(setting.Value))
				})
			})
		},
	}
}

func newSettingListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List settings",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *session) error {
				settings, err := s.guard.ListSettings(s.ctx)
				if err != nil {
					return failed("failed to list settings", err)
				}
				return s.out.Success(settings, func(w io.Writer) {
					if len(settings) == 0 {
						fmt.Fprintln(w, "No settings found.")
						return
					}
					rows := make([][]string, 0, len(settings))
					for _, st := range settings {
						rows = append(rows, []string{st.Key, string(st.Value)})
					}
					writeTable(w, []string{"KEY", "VALUE"}, rows)
				})
			})
		},
	}
}

func newSettingDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete KEY",
		Aliases:       []string{"rm"},
		Short:         "Delete a setting",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			return withSession(cmd, opts, func(s *session) error {
				if err := s.guard.DeleteSetting(s.ctx, key); err != nil {
					return failed("failed to delete setting", err)
				}
				return s.out.Success(map[string]string{"key": key}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %s\n", key)
				})
			})
		},
	}
}
