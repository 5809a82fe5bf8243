package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/casualjim/chorus"
	"github.com/casualjim/chorus/pkg/slogx"
	"github.com/casualjim/chorus/provider"
	"github.com/casualjim/chorus/provider/anthropic"
	"github.com/casualjim/chorus/provider/google"
	"github.com/casualjim/chorus/provider/openai"
	"github.com/fatih/color"
	"github.com/fogfish/opts"
	_ "github.com/joho/godotenv/autoload"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
	"github.com/tidwall/sjson"
	"github.com/urfave/cli/v2"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelInfo}),
	))
}

func main() {
	app := &cli.App{
		Name:  "chorus",
		Usage: "stream LLM completions through one normalized protocol",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "vendor configuration file (YAML)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log at debug level",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				slog.SetDefault(slog.New(
					zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelDebug}),
				))
			}
			return nil
		},
		Commands: []*cli.Command{
			chatCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("chorus failed", slogx.Error(err))
		os.Exit(1)
	}
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "stream one completion turn to the terminal",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "vendor",
				Aliases: []string{"p"},
				Value:   anthropic.Name,
				Usage:   "vendor adapter: anthropic, openai, or google",
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "vendor model identifier",
			},
			&cli.IntFlag{
				Name:  "max-tokens",
				Value: 1024,
				Usage: "output token ceiling (vendors that require one)",
			},
			&cli.BoolFlag{
				Name:  "reasoning",
				Usage: "also print streamed reasoning",
			},
		},
		Action: runChat,
	}
}

func runChat(c *cli.Context) error {
	prompt := c.Args().First()
	if prompt == "" {
		return fmt.Errorf("a prompt argument is required")
	}

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	vendor := c.String("vendor")
	vcfg := cfg.Vendors[vendor]

	model := c.String("model")
	if model == "" {
		model = vcfg.Model
	}
	if model == "" {
		return fmt.Errorf("no model given for %q: pass --model or set it in the config file", vendor)
	}

	p, err := buildProvider(vendor, vcfg)
	if err != nil {
		return err
	}
	provider.Add(p)

	body, err := buildBody(vendor, model, prompt, c.Int("max-tokens"))
	if err != nil {
		return err
	}

	slog.Debug("starting turn", slogx.Vendor(vendor), slog.String("model", model))
	chunks, err := chorus.Stream(c.Context, vendor, provider.Completion{
		Model: model,
		Body:  body,
		Stream: provider.StreamOptions{
			SendReasoning: c.Bool("reasoning"),
			SendFinish:    true,
		},
	})
	if err != nil {
		return err
	}

	return render(c.Context, chunks)
}

func buildProvider(vendor string, vcfg vendorConfig) (provider.Provider, error) {
	switch vendor {
	case anthropic.Name:
		var options []opts.Option[anthropic.Provider]
		if vcfg.BaseURL != "" {
			options = append(options, anthropic.WithBaseURL(vcfg.BaseURL))
		}
		return anthropic.FromEnv(options...)
	case openai.Name:
		var options []opts.Option[openai.Provider]
		if vcfg.BaseURL != "" {
			options = append(options, openai.WithBaseURL(vcfg.BaseURL))
		}
		return openai.FromEnv(options...)
	case google.Name:
		var options []opts.Option[google.Provider]
		if vcfg.BaseURL != "" {
			options = append(options, google.WithBaseURL(vcfg.BaseURL))
		}
		return google.FromEnv(options...)
	default:
		return nil, fmt.Errorf("unknown vendor %q", vendor)
	}
}

// buildBody assembles the minimal vendor request; anything richer is the
// caller's business, not the engine's.
func buildBody(vendor, model, prompt string, maxTokens int) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	switch vendor {
	case anthropic.Name:
		if body, err = sjson.SetBytes(body, "model", model); err != nil {
			return nil, err
		}
		if body, err = sjson.SetBytes(body, "max_tokens", maxTokens); err != nil {
			return nil, err
		}
		return sjson.SetBytes(body, "messages", []map[string]any{
			{"role": "user", "content": prompt},
		})
	case openai.Name:
		if body, err = sjson.SetBytes(body, "model", model); err != nil {
			return nil, err
		}
		return sjson.SetBytes(body, "input", prompt)
	case google.Name:
		// Model rides in the URL for Google.
		return sjson.SetBytes(body, "contents", []map[string]any{
			{"parts": []map[string]any{{"text": prompt}}},
		})
	default:
		return nil, fmt.Errorf("unknown vendor %q", vendor)
	}
}

func render(ctx context.Context, chunks <-chan provider.StreamChunk) error {
	reasoningColor := color.New(color.FgHiBlack, color.Italic)
	toolColor := color.New(color.FgYellow)
	failColor := color.New(color.FgRed, color.Bold)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				fmt.Println()
				return nil
			}
			switch c := chunk.(type) {
			case provider.Text:
				fmt.Print(c.Text)
			case provider.Reasoning:
				reasoningColor.Print(c.Text)
			case provider.ToolCall:
				toolColor.Print(c.Fragment)
			case provider.End:
				slog.Debug("turn finished", slog.String("reason", c.Reason))
			case provider.Failed:
				failColor.Fprintf(os.Stderr, "\nvendor failure: %s\n", c.Reason)
				return fmt.Errorf("turn failed: %s", c.Reason)
			case provider.Incomplete:
				failColor.Fprintf(os.Stderr, "\nturn incomplete: %s\n", c.Reason)
				return fmt.Errorf("turn incomplete: %s", c.Reason)
			case provider.Error:
				return c
			case provider.NotSupported:
				slog.Debug("unsupported event", slog.String("payload", c.Raw))
			case provider.Done:
				if usage := c.Message.Usage; usage != nil {
					slog.Debug("usage",
						slog.Int64("input_tokens", usage.InputTokens),
						slog.Int64("output_tokens", usage.OutputTokens),
					)
				}
			}
		}
	}
}
