// Command toolmeshd is the interactive front-end for a Gateway (spec.md
// §6): a line-oriented REPL that reads a query per line, drives one Agent
// Loop turn against it, prints the compact user-facing projection, and
// after each turn writes the whole conversation so far to a new ndjson file
// in --log-dir.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaymesh/toolmesh"
	"github.com/relaymesh/toolmesh/agent"
	"github.com/relaymesh/toolmesh/conversation"
	"github.com/relaymesh/toolmesh/internal/config"
	"github.com/relaymesh/toolmesh/internal/logging"
	"github.com/relaymesh/toolmesh/mcp"
)

const quitSentinel = "quit"

var logDirFlag string

var rootCmd = &cobra.Command{
	Use:   "toolmeshd <registry-spec> [<server-spec>...]",
	Short: "Run the MCP gateway's interactive REPL",
	Long: "toolmeshd starts a registry-gated MCP gateway and drives a line-oriented\n" +
		"REPL against it. Each positional argument is a server spec of the form\n" +
		"url::type (type is one of sse, stdio, ws); the first is mandatory and\n" +
		"seeds the tool catalogue, the rest are additional servers to bootstrap.\n\n" +
		"Configuration is read from the environment: ANTHROPIC_API_KEY (required),\n" +
		"MODEL_NAME, ANT_VERSION, MAX_RECURSION_DEPTH, DATABASE_URL, LOG_LEVEL.",
	Args:          cobra.MinimumNArgs(1),
	RunE:          runREPL,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&logDirFlag, "log-dir", "./toolmesh-logs", "directory for per-turn ndjson conversation logs")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runREPL(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.LogDir == "" {
		cfg.LogDir = logDirFlag
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	servers := make([]mcp.ServerDescriptor, 0, len(args))
	for _, spec := range args {
		desc, err := mcp.ParseServerSpec(spec)
		if err != nil {
			return fmt.Errorf("toolmeshd: %w", err)
		}
		servers = append(servers, desc)
	}

	a := agent.New(cfg.Model, cfg.SystemPrompt, cfg.MaxOutputTokens)

	gw, err := toolmesh.New(cfg, a, log)
	if err != nil {
		return err
	}
	defer gw.Close()

	ctx := context.Background()
	if err := gw.Bootstrap(ctx, servers); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return fmt.Errorf("toolmeshd: create log dir: %w", err)
	}

	return repl(ctx, gw, cfg.LogDir, cmd.InOrStdin(), cmd.OutOrStdout())
}

func repl(ctx context.Context, gw *toolmesh.Gateway, logDir string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	writer := bufio.NewWriter(out)
	defer writer.Flush() //nolint:errcheck

	var conv conversation.Conversation

	for scanner.Scan() {
		line := scanner.Text()
		if line == quitSentinel {
			return nil
		}
		if line == "" {
			continue
		}

		if err := gw.RunTurn(ctx, &conv, line); err != nil {
			fmt.Fprintf(writer, "error: %v\n", err)
			writer.Flush() //nolint:errcheck
			continue
		}

		if err := writeTranscript(logDir, &conv); err != nil {
			fmt.Fprintf(writer, "warning: failed to write transcript: %v\n", err)
		}

		for _, line := range conv.UserFacingProjection() {
			fmt.Fprintln(writer, line)
		}
		writer.Flush() //nolint:errcheck
	}
	return scanner.Err()
}

// transcriptBlock adds the block kind conversation.ContentBlock otherwise
// only exposes through a method, so the ndjson log carries enough to
// distinguish block types without leaning on Go's default JSON encoding of
// an interface value.
type transcriptBlock struct {
	Kind  conversation.BlockKind    `json:"kind"`
	Block conversation.ContentBlock `json:"block"`
}

type transcriptMessage struct {
	Role   conversation.Role `json:"role"`
	Blocks []transcriptBlock `json:"blocks"`
}

// writeTranscript writes logDir/<turn-timestamp>.ndjson with one JSON line
// per message in conv (spec.md §6: "every turn writes a structured log of
// the full conversation").
func writeTranscript(logDir string, conv *conversation.Conversation) error {
	name := fmt.Sprintf("%d.ndjson", time.Now().UnixNano())
	f, err := os.Create(filepath.Join(logDir, name))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, msg := range conv.Messages {
		tm := transcriptMessage{Role: msg.Role, Blocks: make([]transcriptBlock, 0, len(msg.Content))}
		for _, block := range msg.Content {
			tm.Blocks = append(tm.Blocks, transcriptBlock{Kind: block.Kind(), Block: block})
		}
		if err := enc.Encode(tm); err != nil {
			return err
		}
	}
	return nil
}
