package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-doctranslate/internal/lang"
	"github.com/alnah/go-doctranslate/internal/transform"
)

// emailOptions holds validated options for the email command.
type emailOptions struct {
	info   string
	tone   transform.Tone
	target lang.Language
	model  string
}

// EmailCmd creates the email command.
func EmailCmd(env *Env) *cobra.Command {
	var (
		tone   string
		target string
		model  string
	)

	cmd := &cobra.Command{
		Use:   "email <information...|->",
		Short: "Compose an email from a few notes",
		Long: `Compose an email in the target language from free-form information.

The arguments are joined into the information the email must convey.
Use "-" to read it from stdin. The email is written to stdout.

Tones: ` + strings.Join(transform.Tones(), ", "),
		Example: `  doctranslate email "Meeting moved to Friday 10am, bring the Q3 figures"
  doctranslate email --tone festive -l fr "Invite the team to the summer party on July 4th"
  cat notes.txt | doctranslate email -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseEmailOptions(env, args, tone, target, model)
			if err != nil {
				return err
			}
			return runEmail(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVarP(&tone, "tone", "t", string(transform.Formal), "Tone: "+strings.Join(transform.Tones(), ", "))
	cmd.Flags().StringVarP(&target, "lang", "l", "de", "Language of the email (ISO 639-1 code)")
	cmd.Flags().StringVar(&model, "model", "", "Model (default: config transform-model)")

	return cmd
}

// parseEmailOptions validates CLI inputs at the boundary, before any call.
func parseEmailOptions(env *Env, args []string, tone, target, model string) (emailOptions, error) {
	info := strings.Join(args, " ")
	if len(args) == 1 && args[0] == stdinName {
		data, err := io.ReadAll(env.Stdin)
		if err != nil {
			return emailOptions{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		info = string(data)
	}
	info = strings.TrimSpace(info)
	if info == "" {
		return emailOptions{}, fmt.Errorf("email information: %w", transform.ErrEmptyInput)
	}

	parsedTone, err := transform.ParseTone(tone)
	if err != nil {
		return emailOptions{}, err
	}
	parsedTarget, err := lang.Parse(target)
	if err != nil {
		return emailOptions{}, err
	}

	return emailOptions{info: info, tone: parsedTone, target: parsedTarget, model: model}, nil
}

// runEmail composes the email and prints it to stdout.
func runEmail(ctx context.Context, env *Env, opts emailOptions) error {
	apiKey := env.Getenv(EnvOpenAIAPIKey)
	if apiKey == "" {
		return fmt.Errorf("%w (set it with: export %s=sk-...)", ErrAPIKeyMissing, EnvOpenAIAPIKey)
	}

	if opts.model == "" {
		cfg, err := env.ConfigLoader.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		opts.model = cfg.TransformModel
	}

	completer := env.CompleterFactory.NewCompleter(apiKey, env.Getenv(EnvOpenAIBaseURL), env.log())

	fmt.Fprintf(env.Stderr, "Writing %s email in %s...\n", opts.tone, opts.target.DisplayName())
	email, err := transform.WriteEmail(ctx, completer, opts.model, opts.info, opts.tone, opts.target)
	if err != nil {
		return fmt.Errorf("email failed: %w", err)
	}

	_, err = fmt.Fprintln(env.Stdout, email)
	return err
}
