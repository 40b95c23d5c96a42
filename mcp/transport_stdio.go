package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// interpreters maps a script extension to the interpreter that runs it when
// the server command names a bare script with no interpreter of its own.
var interpreters = map[string]string{
	".py":  "python3",
	".js":  "node",
	".mjs": "node",
}

// stdioTransport communicates with an MCP server running as a subprocess.
// JSON-RPC messages are newline-delimited on stdin/stdout (spec.md §4.1).
type stdioTransport struct {
	command string
	args    []string
	env     []string
	log     *zap.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	reader *bufio.Reader
}

var _ Transport = (*stdioTransport)(nil)

// newStdioTransportFromURL splits desc.URL into a command and argument
// vector, resolving uv/uvx off PATH and sniffing the script extension to
// pick an interpreter when the command is a bare script path.
func newStdioTransportFromURL(desc ServerDescriptor, cfg transportConfig) (*stdioTransport, error) {
	fields := strings.Fields(desc.URL)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty stdio command", ErrInvalidConfig)
	}

	command, args := resolveCommand(fields[0], fields[1:])
	return &stdioTransport{
		command: command,
		args:    args,
		env:     cfg.env,
		log:     cfg.logOrNop(),
	}, nil
}

// resolveCommand applies interpreter sniffing and uv/uvx PATH resolution.
// A bare "uv"/"uvx" command is resolved via exec.LookPath so the subprocess
// is spawned even when the caller's PATH differs from a login shell's. A
// first argument ending in a known script extension, with no interpreter
// already named, is prefixed with that extension's interpreter.
func resolveCommand(first string, rest []string) (string, []string) {
	if first == "uv" || first == "uvx" {
		if resolved, err := exec.LookPath(first); err == nil {
			first = resolved
		}
		return first, rest
	}

	for ext, interp := range interpreters {
		if strings.HasSuffix(first, ext) {
			return interp, append([]string{first}, rest...)
		}
	}

	return first, rest
}

func (t *stdioTransport) start(_ context.Context) error {
	if t.cmd != nil && t.cmd.ProcessState == nil {
		return nil
	}

	t.log.Info("starting MCP subprocess", zap.String("command", t.command), zap.Strings("args", t.args))

	cmd := exec.Command(t.command, t.args...)
	cmd.Env = append(os.Environ(), t.env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return fmt.Errorf("start subprocess %s: %w", t.command, err)
	}

	t.cmd = cmd
	t.stdin = stdin
	t.reader = bufio.NewReaderSize(stdout, 1<<20)

	go t.drainStderr(stderr)

	t.log.Info("MCP subprocess started", zap.Int("pid", cmd.Process.Pid))
	return nil
}

func (t *stdioTransport) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		t.log.Debug("MCP subprocess stderr", zap.String("line", scanner.Text()))
	}
}

type stdioReadResult struct {
	line []byte
	err  error
}

func (t *stdioTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.start(ctx); err != nil {
		return nil, err
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	if _, err := t.stdin.Write(append(data, '\n')); err != nil {
		t.cleanup()
		return nil, fmt.Errorf("write to subprocess stdin: %w", err)
	}

	for {
		ch := make(chan stdioReadResult, 1)
		go func() {
			line, readErr := t.reader.ReadBytes('\n')
			ch <- stdioReadResult{line: line, err: readErr}
		}()

		select {
		case <-ctx.Done():
			t.cleanup()
			return nil, ctx.Err()
		case res := <-ch:
			if res.err != nil {
				t.cleanup()
				return nil, fmt.Errorf("read from subprocess stdout: %w", res.err)
			}
			var resp Response
			if err := json.Unmarshal(res.line, &resp); err != nil {
				t.log.Debug("skipping non-JSON line from MCP subprocess", zap.ByteString("line", res.line))
				continue
			}
			if resp.ID == req.ID {
				return &resp, nil
			}
			t.log.Debug("skipping unmatched MCP message", zap.String("id", resp.ID))
		}
	}
}

func (t *stdioTransport) Notify(ctx context.Context, notif *Notification) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.start(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(notif)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if _, err := t.stdin.Write(append(data, '\n')); err != nil {
		t.cleanup()
		return fmt.Errorf("write notification to subprocess stdin: %w", err)
	}
	return nil
}

func (t *stdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop()
}

func (t *stdioTransport) stop() error {
	if t.cmd == nil || t.cmd.Process == nil {
		return nil
	}

	t.log.Info("stopping MCP subprocess", zap.Int("pid", t.cmd.Process.Pid))

	if t.stdin != nil {
		t.stdin.Close()
	}

	done := make(chan error, 1)
	go func() { done <- t.cmd.Wait() }()

	select {
	case err := <-done:
		t.cmd = nil
		return err
	case <-time.After(5 * time.Second):
		t.log.Warn("MCP subprocess did not exit gracefully, killing", zap.Int("pid", t.cmd.Process.Pid))
		_ = t.cmd.Process.Kill()
		<-done
		t.cmd = nil
		return nil
	}
}

func (t *stdioTransport) cleanup() {
	if t.stdin != nil {
		t.stdin.Close()
	}
	if t.cmd != nil && t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
		_ = t.cmd.Wait()
	}
	t.cmd = nil
	t.stdin = nil
	t.reader = nil
}
