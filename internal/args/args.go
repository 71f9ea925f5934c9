package args

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cli/go-gh/v2/pkg/term"
	"github.com/spf13/cobra"

	"github.com/markis/smooth/internal/config"
)

// ErrHelpShown is returned when cobra printed help or version output instead of running.
var ErrHelpShown = errors.New("help shown")

// Arguments represents the command-line arguments structure.
type Arguments struct {
	Text         string
	File         string
	URL          string
	Output       string
	Command      string
	Provider     string
	Model        string
	Instructions string
	MaxChunkSize int
	Concurrency  int
	UsePlainText bool
	Quiet        bool
	Verbose      bool
}

// Apply copies the run settings onto cfg.
func (a Arguments) Apply(cfg *config.Config) {
	cfg.Provider = a.Provider
	cfg.Model = a.Model
	cfg.MaxChunkSize = a.MaxChunkSize
	cfg.Concurrency = a.Concurrency
	if a.Instructions != "" {
		cfg.Instructions = a.Instructions
	}
}

// ParseArgs parses argv and, when no file or URL is given, reads the text
// to rewrite from stdin. Prompt presets from cfg become sub-commands.
func ParseArgs(ctx context.Context, cfg config.Config, argv []string, stdin io.Reader) (Arguments, error) {
	args := Arguments{}
	ran := false

	run := func(cmd *cobra.Command, cmdArgs []string) error {
		ran = true
		if len(cmdArgs) > 0 {
			args.File = cmdArgs[0]
		}
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           "smooth [flags] [file]",
		Short:         "Rewrite long text through an LLM, chunk by chunk, in parallel",
		Args:          cobra.MaximumNArgs(1),
		RunE:          run,
		SilenceErrors: true, // We'll handle error reporting
		SilenceUsage:  true, // We'll handle usage display
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&args.Provider, "provider", cfg.Provider, "Rewrite service: ollama, gemini, gemini-sdk, openai or copilot")
	flags.StringVar(&args.Model, "model", cfg.Model, "The AI model to use (provider default when empty)")
	flags.IntVar(&args.MaxChunkSize, "chunk-size", cfg.MaxChunkSize, "Maximum characters per request")
	flags.IntVar(&args.Concurrency, "concurrency", cfg.Concurrency, "Number of parallel requests")
	flags.StringVar(&args.URL, "url", "", "Fetch and rewrite a chapter page")
	flags.StringVarP(&args.Output, "output", "o", "", "Write the result to a file instead of stdout")
	flags.BoolVar(&args.UsePlainText, "plain", shouldUsePlainText(cfg), "Disable markdown rendering")
	flags.BoolVarP(&args.Quiet, "quiet", "q", false, "Hide live progress")
	flags.BoolVarP(&args.Verbose, "verbose", "v", false, "Enable debug logging")

	// Add predefined prompts in a stable order
	names := make([]string, 0, len(cfg.Prompts))
	for name := range cfg.Prompts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		preset := cfg.Prompts[name]
		rootCmd.AddCommand(&cobra.Command{
			Use:   name + " [file]",
			Short: summarizePrompt(preset.Prompt),
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, cmdArgs []string) error {
				args.Command = name
				args.Instructions = preset.Prompt
				if preset.Model != "" && !cmd.Flags().Changed("model") {
					args.Model = preset.Model
				}
				if preset.Provider != "" && !cmd.Flags().Changed("provider") {
					args.Provider = preset.Provider
				}
				return run(cmd, cmdArgs)
			},
		})
	}

	// cobra falls back to os.Args when given nil
	if argv == nil {
		argv = []string{}
	}
	rootCmd.SetArgs(argv)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return Arguments{}, err
	}
	if !ran {
		return Arguments{}, ErrHelpShown
	}

	if args.File == "" && args.URL == "" && stdin != nil {
		text, err := readInput(stdin)
		if err != nil {
			return Arguments{}, err
		}
		args.Text = text
	}

	if args.File == "" && args.URL == "" && args.Text == "" {
		return Arguments{}, errors.New("no input provided")
	}

	return args, nil
}

// readInput reads all of r, line by line, trimming surrounding whitespace.
func readInput(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // 1MB max line
	var buf strings.Builder
	for scanner.Scan() {
		buf.WriteString(scanner.Text())
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// PipedStdin returns os.Stdin when it is not a terminal, and nil otherwise.
func PipedStdin() io.Reader {
	if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		return os.Stdin
	}
	return nil
}

// shouldUsePlainText determines if plain text output should be used based on environment and terminal settings.
func shouldUsePlainText(cfg config.Config) bool {
	if cfg.Render.Format == "plain" {
		return true
	}

	// Output is being redirected
	if !term.FromEnv().IsTerminalOutput() {
		return true
	}

	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}

	if termEnv := os.Getenv("TERM"); termEnv == "dumb" {
		return true
	}

	return false
}

func summarizePrompt(prompt string) string {
	summary := strings.TrimSpace(prompt)
	if len(summary) > 60 {
		summary = summary[:57] + "..."
	}
	return summary
}
