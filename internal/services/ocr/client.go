package ocr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"bugsort/internal/config"
	"bugsort/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client extracts text from screenshots with the tesseract CLI.
type Client struct {
	binary    string
	languages string
	psm       int
	timeout   time.Duration
	exec      Executor
}

var _ services.TextExtractor = (*Client)(nil)

// New constructs a tesseract client.
func New(binary, languages string, psm, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("tesseract binary required")
	}
	client := &Client{
		binary:    binary,
		languages: strings.TrimSpace(languages),
		psm:       psm,
		timeout:   time.Duration(timeoutSeconds) * time.Second,
		exec:      commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client from the ocr config section.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	return New(cfg.OCRBinary(), cfg.OCR.Languages, cfg.OCR.PSM, cfg.OCR.TimeoutSeconds, opts...)
}

// ExtractText runs tesseract in TSV mode. The text is every recognized word
// joined by single spaces; confidence is the mean word confidence scaled to
// [0,1]. Failures and timeouts are tagged ErrExternalCall.
func (c *Client) ExtractText(ctx context.Context, imagePath string) (string, float64, error) {
	if _, err := os.Stat(imagePath); err != nil {
		return "", 0, services.Wrap(services.ErrInput, "ocr", "extract", imagePath, err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{imagePath, "stdout"}
	if c.languages != "" {
		args = append(args, "-l", c.languages)
	}
	if c.psm > 0 {
		args = append(args, "--psm", strconv.Itoa(c.psm))
	}
	args = append(args, "tsv")

	parser := &tsvParser{}
	if err := c.exec.Run(runCtx, c.binary, args, parser.line); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", 0, services.Wrap(services.ErrExternalCall, "ocr", "extract",
				fmt.Sprintf("tesseract timed out after %s", c.timeout), errors.Join(services.ErrTimeout, err))
		}
		return "", 0, services.Wrap(services.ErrExternalCall, "ocr", "extract", "tesseract failed", err)
	}
	text, confidence := parser.result()
	return text, confidence, nil
}

// tsvParser accumulates word rows from tesseract TSV output.
type tsvParser struct {
	header    bool
	confIdx   int
	textIdx   int
	levelIdx  int
	words     []string
	confSum   float64
	confCount int
}

const wordLevel = "5"

func (p *tsvParser) line(line string) {
	fields := strings.Split(line, "\t")
	if !p.header {
		p.confIdx, p.textIdx, p.levelIdx = -1, -1, -1
		for i, name := range fields {
			switch strings.TrimSpace(name) {
			case "conf":
				p.confIdx = i
			case "text":
				p.textIdx = i
			case "level":
				p.levelIdx = i
			}
		}
		p.header = p.confIdx >= 0 && p.textIdx >= 0
		return
	}
	if p.textIdx >= len(fields) || p.confIdx >= len(fields) {
		return
	}
	if p.levelIdx >= 0 && p.levelIdx < len(fields) && fields[p.levelIdx] != wordLevel {
		return
	}
	word := strings.TrimSpace(fields[p.textIdx])
	if word == "" {
		return
	}
	p.words = append(p.words, word)
	conf, err := strconv.ParseFloat(strings.TrimSpace(fields[p.confIdx]), 64)
	if err == nil && conf > 0 {
		p.confSum += conf
		p.confCount++
	}
}

func (p *tsvParser) result() (string, float64) {
	text := strings.Join(p.words, " ")
	if p.confCount == 0 {
		return text, 0
	}
	confidence := p.confSum / float64(p.confCount) / 100
	if confidence > 1 {
		confidence = 1
	}
	return text, confidence
}

type commandExecutor struct{}

const maxStderr = 4096

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &limitedWriter{buf: &stderr, limit: maxStderr}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanErr = scanLines(stdout, onStdout)
	}()
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("wait command: %w: %s", err, msg)
		}
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

func scanLines(r io.Reader, onLine func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}
	return scanner.Err()
}

type limitedWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if remaining := w.limit - w.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			w.buf.Write(p[:remaining])
		} else {
			w.buf.Write(p)
		}
	}
	return len(p), nil
}
