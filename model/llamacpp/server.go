package llamacpp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	defaultServerBinary   = "llama-server"
	defaultStartupTimeout = 2 * time.Minute
	healthPollInterval    = 250 * time.Millisecond
	stderrTailBytes       = 2048
)

// ServerConfig describes a llama-server process to launch.
type ServerConfig struct {
	Binary      string
	ModelPath   string
	ContextSize int
	Timeout     time.Duration
}

// Server is a llama-server child process bound to a loopback port.
type Server struct {
	cmd    *exec.Cmd
	url    string
	done   chan struct{}
	err    error
	stderr *tailBuffer
}

// StartServer launches llama-server for cfg.ModelPath on a free loopback port
// and blocks until it reports healthy, exits, or the startup timeout passes.
func StartServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("llama-server: model path is required")
	}
	if cfg.Binary == "" {
		cfg.Binary = defaultServerBinary
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultStartupTimeout
	}

	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("llama-server: pick port: %w", err)
	}

	cmd := exec.Command(cfg.Binary, serverArgs(cfg, port)...)
	stderr := &tailBuffer{max: stderrTailBytes}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("llama-server: start %s: %w", cfg.Binary, err)
	}

	s := &Server{
		cmd:    cmd,
		url:    "http://127.0.0.1:" + strconv.Itoa(port),
		done:   make(chan struct{}),
		stderr: stderr,
	}
	go func() {
		s.err = cmd.Wait()
		close(s.done)
	}()

	slog.Debug("starting llama-server", "binary", cfg.Binary, "model", cfg.ModelPath, "url", s.url)

	if err := s.waitReady(ctx, cfg.Timeout); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// URL returns the server's base URL.
func (s *Server) URL() string { return s.url }

// Close stops the process and waits for it to exit.
func (s *Server) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	if err := s.cmd.Process.Kill(); err != nil {
		return err
	}
	<-s.done
	return nil
}

func (s *Server) waitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := NewClient(s.url)
	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()

	for {
		err := client.Health(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-s.done:
			return fmt.Errorf("llama-server exited during startup: %v: %s", s.err, s.stderr.String())
		case <-ctx.Done():
			return fmt.Errorf("llama-server not ready after %s: %w", timeout, err)
		case <-ticker.C:
		}
	}
}

// serverArgs builds the llama-server command line.
func serverArgs(cfg ServerConfig, port int) []string {
	args := []string{
		"-m", cfg.ModelPath,
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(port),
	}
	if cfg.ContextSize > 0 {
		args = append(args, "-c", strconv.Itoa(cfg.ContextSize))
	}
	return args
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(t.buf.String())
}
