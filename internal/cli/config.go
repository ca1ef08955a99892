package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-doctranslate/internal/config"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/doctranslate/config.
Each setting falls back to a DOCTRANSLATE_* environment variable
(char-budget -> DOCTRANSLATE_CHAR_BUDGET), then to a built-in default.
Command-line flags override all three.

Supported settings:
` + settingsHelp(),
		Example: `  doctranslate config set target-lang de
  doctranslate config set cache redis
  doctranslate config set redis-url redis://localhost:6379/0
  doctranslate config get token-budget
  doctranslate config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// settingsHelp lists every key with its default.
func settingsHelp() string {
	var b strings.Builder
	for _, key := range config.Keys() {
		def := config.Default(key)
		if def == "" {
			def = "unset"
		}
		fmt.Fprintf(&b, "  %-22s default: %s\n", key, def)
	}
	return strings.TrimRight(b.String(), "\n")
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value. An empty value removes the setting.

For output-dir, the directory is created if it doesn't exist.`,
		Example: `  doctranslate config set output-dir ~/Documents/translations
  doctranslate config set parallel 4
  doctranslate config set redis-url ""`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get the effective value of a setting.

Prints the value from the config file, the environment or the default,
in that order, or nothing if none is set.`,
		Example: `  doctranslate config get output-dir`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List all configuration values",
		Long:    `List every setting with its effective value and where it comes from.`,
		Example: `  doctranslate config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if key == config.KeyOutputDir && value != "" {
		expanded := config.ExpandPath(value)
		if err := config.EnsureOutputDir(expanded); err != nil {
			return fmt.Errorf("invalid output-dir: %w", err)
		}
		value = expanded
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	if value == "" {
		fmt.Fprintf(env.Stderr, "Unset %s\n", key)
		return nil
	}
	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	// Only the key matters here; an empty value may be invalid for it.
	if err := config.Validate(key, ""); errors.Is(err, config.ErrInvalidKey) {
		return err
	}

	value, _, err := effectiveValue(env, key)
	if err != nil {
		return err
	}
	if value != "" {
		fmt.Fprintln(env.Stdout, value)
	}
	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	for _, key := range config.Keys() {
		value, source, err := effectiveValue(env, key)
		if err != nil {
			return err
		}
		if value == "" {
			fmt.Fprintf(env.Stdout, "%s=\n", key)
			continue
		}
		fmt.Fprintf(env.Stdout, "%s=%s (%s)\n", key, value, source)
	}
	return nil
}

// effectiveValue resolves key with file > env > default precedence and
// reports where the value came from.
func effectiveValue(env *Env, key string) (value, source string, err error) {
	value, err = config.Get(key)
	if err != nil {
		return "", "", err
	}
	if value != "" {
		return value, "file", nil
	}
	if value = env.Getenv(config.EnvName(key)); value != "" {
		return value, "env", nil
	}
	return config.Default(key), "default", nil
}
