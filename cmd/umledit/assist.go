package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	umledit "github.com/alnah/go-umledit"
	"github.com/alnah/go-umledit/internal/fileutil"
)

// transcriptPerm keeps prompts private to the user.
const transcriptPerm = 0o600

// assistFlags holds flags for the assist command.
type assistFlags struct {
	common     commonFlags
	renderer   rendererFlags
	assistant  assistantFlags
	render     bool
	format     string
	output     string
	transcript string
}

// assistFlagSet registers the assist flags on a new FlagSet.
func assistFlagSet(f *assistFlags) *flag.FlagSet {
	fs := newFlagSet("assist")

	fs.BoolVarP(&f.render, "render", "r", false, "render the generated markup")
	fs.StringVarP(&f.format, "format", "f", string(umledit.DefaultFormat), "format for --render")
	fs.StringVarP(&f.output, "output", "o", "", "write the markup to a file instead of stdout")
	fs.StringVar(&f.transcript, "transcript", "", "conversation file to continue and update")
	addCommonFlags(fs, &f.common)
	addRendererFlags(fs, &f.renderer)
	addAssistantFlags(fs, &f.assistant)
	return fs
}

func parseAssistFlags(args []string, env *Environment) (*assistFlags, []string, error) {
	f := &assistFlags{}
	fs := assistFlagSet(f)
	rest, err := parseFlagSet(fs, args, printAssistUsage, env)
	return f, rest, err
}

// runAssist asks the completion endpoint for markup from a prompt.
func runAssist(ctx context.Context, args []string, env *Environment) error {
	flags, rest, err := parseAssistFlags(args, env)
	if err != nil {
		return err
	}

	var prompt string
	switch {
	case len(rest) == 0:
		return fmt.Errorf("%w: assist needs a prompt (or - for stdin)", ErrUsage)
	case len(rest) == 1 && rest[0] == stdinArg:
		if prompt, err = readInput(stdinArg, env); err != nil {
			return err
		}
	default:
		prompt = strings.Join(rest, " ")
	}
	if strings.TrimSpace(prompt) == "" {
		return umledit.ErrBlankPrompt
	}

	format, err := umledit.ParseFormat(flags.format)
	if err != nil {
		return err
	}

	a, err := setup(&flags.common, &flags.renderer, &flags.assistant, env)
	if err != nil {
		return err
	}
	key, ok := a.apiKey()
	if !ok {
		return umledit.ErrNoAPIKey
	}

	conv, err := loadTranscript(flags.transcript)
	if err != nil {
		return err
	}

	markup, err := a.assistant().Complete(ctx, conv, prompt, key)
	if err != nil {
		return err
	}

	if flags.transcript != "" {
		if err := saveTranscript(flags.transcript, conv); err != nil {
			return err
		}
	}

	if flags.output != "" {
		if err := fileutil.AtomicWriteFile(flags.output, []byte(markup+"\n"), filePermissions, dirPermissions); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}
	} else {
		fmt.Fprintln(env.Stdout, markup)
	}

	if !flags.render {
		return nil
	}
	r, err := a.renderer(format)
	if err != nil {
		return err
	}
	artifact, err := r.Render(ctx, markup, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Stderr, artifact)
	return nil
}

// loadTranscript reads a saved conversation. A missing file or empty path
// starts a new one.
func loadTranscript(path string) (*umledit.Conversation, error) {
	conv := umledit.NewConversation()
	if path == "" {
		return conv, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided transcript path
	if errors.Is(err, os.ErrNotExist) {
		return conv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	if err := json.Unmarshal(data, conv); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUsage, path, err)
	}
	return conv, nil
}

// saveTranscript writes the conversation as indented JSON.
func saveTranscript(path string, conv *umledit.Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding transcript: %w", err)
	}
	if err := fileutil.AtomicWriteFile(path, append(data, '\n'), transcriptPerm, dirPermissions); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	return nil
}

func printAssistUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: umledit assist <prompt...|-> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate diagram markup from a natural-language prompt. The API key")
	fmt.Fprintln(w, "comes from UMLEDIT_API_KEY or 'umledit key set'.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -r, --render              Render the markup and print the artifact path to stderr")
	fmt.Fprintln(w, "  -f, --format <s>          Format for --render (default png)")
	fmt.Fprintln(w, "  -o, --output <path>       Write markup to a file instead of stdout")
	fmt.Fprintln(w, "      --transcript <path>   Continue a conversation saved in this file")
	fmt.Fprintln(w, "      --endpoint <url>      Chat-completion URL")
	fmt.Fprintln(w, "      --model <s>           Model name")
	printRendererFlagUsage(w)
	printCommonFlagUsage(w)
}
