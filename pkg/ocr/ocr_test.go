package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pageDir(t *testing.T, pages int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 1; i <= pages; i++ {
		name := fmt.Sprintf("%04d.pdf", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	return dir
}

// echoEngine returns the page content as markdown.
var echoEngine = EngineFunc(func(ctx context.Context, pdf []byte) (string, error) {
	return "# " + string(pdf), nil
})

func TestRunner_Run(t *testing.T) {
	dir := pageDir(t, 3)

	result, err := NewRunner(echoEngine, Config{Workers: 2}, quietLogger()).Run(context.Background(), dir)

	require.NoError(t, err)
	assert.Empty(t, result.Failed)
	assert.Empty(t, result.Skipped)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "0001.pdf.md"),
		filepath.Join(dir, "0002.pdf.md"),
		filepath.Join(dir, "0003.pdf.md"),
	}, result.Created)

	data, err := os.ReadFile(filepath.Join(dir, "0002.pdf.md"))
	require.NoError(t, err)
	assert.Equal(t, "# 0002.pdf", string(data))
}

func TestRunner_SkipsExistingMarkdown(t *testing.T) {
	dir := pageDir(t, 2)
	existing := filepath.Join(dir, "0001.pdf.md")
	require.NoError(t, os.WriteFile(existing, []byte("kept"), 0o644))

	var calls atomic.Int32
	engine := EngineFunc(func(ctx context.Context, pdf []byte) (string, error) {
		calls.Add(1)
		return "new", nil
	})

	result, err := NewRunner(engine, Config{Workers: 4}, quietLogger()).Run(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{filepath.Join(dir, "0001.pdf")}, result.Skipped)
	assert.Equal(t, []string{filepath.Join(dir, "0002.pdf.md")}, result.Created)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))
}

func TestRunner_FailuresAreIsolated(t *testing.T) {
	dir := pageDir(t, 4)
	boom := errors.New("service unavailable")
	engine := EngineFunc(func(ctx context.Context, pdf []byte) (string, error) {
		if string(pdf) == "0002.pdf" {
			return "", boom
		}
		return "ok", nil
	})

	result, err := NewRunner(engine, Config{Workers: 2}, quietLogger()).Run(context.Background(), dir)

	require.NoError(t, err)
	require.Len(t, result.Failed, 1)
	assert.ErrorIs(t, result.Failed[filepath.Join(dir, "0002.pdf")], boom)
	assert.Len(t, result.Created, 3)
	assert.NoFileExists(t, filepath.Join(dir, "0002.pdf.md"))

	// A second run only retries the failed page.
	var calls atomic.Int32
	retry := EngineFunc(func(ctx context.Context, pdf []byte) (string, error) {
		calls.Add(1)
		return "ok", nil
	})
	second, err := NewRunner(retry, Config{Workers: 2}, quietLogger()).Run(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, second.Skipped, 3)
	assert.Equal(t, []string{filepath.Join(dir, "0002.pdf.md")}, second.Created)
}

func TestRunner_BoundedConcurrency(t *testing.T) {
	dir := pageDir(t, 8)
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	engine := EngineFunc(func(ctx context.Context, pdf []byte) (string, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return "ok", nil
	})

	result, err := NewRunner(engine, Config{Workers: 3}, quietLogger()).Run(context.Background(), dir)

	require.NoError(t, err)
	assert.Len(t, result.Created, 8)
	assert.LessOrEqual(t, peak, 3)
	assert.GreaterOrEqual(t, peak, 1)
}

func TestRunner_PassesPageFile(t *testing.T) {
	dir := pageDir(t, 2)
	engine := EngineFunc(func(ctx context.Context, pdf []byte) (string, error) {
		return PageFile(ctx), nil
	})

	_, err := NewRunner(engine, Config{Workers: 2}, quietLogger()).Run(context.Background(), dir)
	require.NoError(t, err)

	for _, name := range []string{"0001.pdf", "0002.pdf"} {
		data, err := os.ReadFile(filepath.Join(dir, name+".md"))
		require.NoError(t, err)
		assert.Equal(t, name, string(data))
	}
	assert.Empty(t, PageFile(context.Background()))
}

func TestRunner_EmptyDirectory(t *testing.T) {
	result, err := NewRunner(echoEngine, DefaultConfig(), quietLogger()).Run(context.Background(), t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Empty(t, result.Failed)
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(echoEngine, Config{}, nil)

	assert.Equal(t, DefaultConfig().Workers, r.config.Workers)
	assert.Equal(t, "*.pdf", r.config.Pattern)
	assert.NotNil(t, r.logger)
}
