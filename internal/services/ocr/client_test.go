package ocr_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"bugsort/internal/services"
	"bugsort/internal/services/ocr"
	"bugsort/internal/testsupport"
)

type stubExecutor struct {
	lines []string
	err   error
	block bool
	args  []string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	s.args = append([]string(nil), args...)
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	for _, line := range s.lines {
		onStdout(line)
	}
	return s.err
}

const tsvHeader = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext"

func image(t *testing.T) string {
	t.Helper()
	return testsupport.WriteFile(t, filepath.Join(t.TempDir(), "shot.png"), "png")
}

func TestExtractTextParsesTSV(t *testing.T) {
	exec := &stubExecutor{lines: []string{
		tsvHeader,
		"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t",
		"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t90\tLogin",
		"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t70\tfailed",
		"5\t1\t1\t1\t1\t3\t0\t0\t10\t10\t-1\t ",
	}}
	client, err := ocr.New("tesseract", "eng+tam", 6, 5, ocr.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	path := image(t)
	text, conf, err := client.ExtractText(context.Background(), path)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "Login failed" {
		t.Fatalf("text = %q", text)
	}
	if math.Abs(conf-0.80) > 1e-9 {
		t.Fatalf("confidence = %v", conf)
	}
	want := []string{path, "stdout", "-l", "eng+tam", "--psm", "6", "tsv"}
	if !slices.Equal(exec.args, want) {
		t.Fatalf("args = %v, want %v", exec.args, want)
	}
}

func TestExtractTextNoWords(t *testing.T) {
	client, _ := ocr.New("tesseract", "", 0, 0, ocr.WithExecutor(&stubExecutor{lines: []string{tsvHeader}}))
	text, conf, err := client.ExtractText(context.Background(), image(t))
	if err != nil || text != "" || conf != 0 {
		t.Fatalf("got %q %v %v", text, conf, err)
	}
}

func TestExtractTextFailures(t *testing.T) {
	t.Run("executor error", func(t *testing.T) {
		client, _ := ocr.New("tesseract", "eng", 6, 5, ocr.WithExecutor(&stubExecutor{err: errors.New("boom")}))
		_, _, err := client.ExtractText(context.Background(), image(t))
		if !errors.Is(err, services.ErrExternalCall) {
			t.Fatalf("expected external call error, got %v", err)
		}
	})
	t.Run("timeout", func(t *testing.T) {
		client, _ := ocr.New("tesseract", "eng", 6, 0, ocr.WithExecutor(&stubExecutor{block: true}))
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, _, err := client.ExtractText(ctx, image(t))
		if !errors.Is(err, services.ErrExternalCall) {
			t.Fatalf("expected external call error, got %v", err)
		}
	})
	t.Run("missing image", func(t *testing.T) {
		client, _ := ocr.New("tesseract", "eng", 6, 5, ocr.WithExecutor(&stubExecutor{}))
		_, _, err := client.ExtractText(context.Background(), filepath.Join(t.TempDir(), "nope.png"))
		if !errors.Is(err, services.ErrInput) {
			t.Fatalf("expected input error, got %v", err)
		}
	})
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := ocr.New("  ", "eng", 6, 5); err == nil {
		t.Fatal("expected error for empty binary")
	}
}
