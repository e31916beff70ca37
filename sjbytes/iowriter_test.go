package sjbytes_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanjson/spanjson-go/sjbytes"
	"github.com/spanjson/spanjson-go/sjutil"
)

type testLine struct {
	b []byte
}

func (l *testLine) AsBytes() []byte { return l.b }
func (l *testLine) ReclaimMemory()  {}

func TestIOWriterLinesDoNotInterleave(t *testing.T) {
	var buf sjutil.Buffer
	w := sjbytes.WriteToIOWriter(&buf)

	const goroutines = 16
	const perGoroutine = 200
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				line := fmt.Sprintf(`{"g":%d,"i":%d}`+"\n", g, i)
				assert.NoError(t, w.Line(&testLine{b: []byte(line)}))
			}
		}(g)
	}
	wg.Wait()

	lines := buf.Lines()
	require.Len(t, lines, goroutines*perGoroutine)
	for _, line := range lines {
		var m map[string]int
		require.NoError(t, json.Unmarshal([]byte(line), &m), "interleaved line: %s", line)
	}
}

type flakyWriter struct {
	failures int
	partial  int // bytes accepted before the next failure
	buf      bytes.Buffer
}

func (f *flakyWriter) Write(p []byte) (int, error) {
	if f.failures > 0 {
		f.failures--
		n := f.partial
		if n > len(p) {
			n = len(p)
		}
		f.buf.Write(p[:n])
		return n, errors.New("sink unavailable")
	}
	return f.buf.Write(p)
}

func TestIOWriterRetriesResumeShortWrites(t *testing.T) {
	f := &flakyWriter{failures: 2, partial: 4}
	w := sjbytes.WriteToIOWriter(f, sjbytes.WithRetries(2))
	require.NoError(t, w.Line(&testLine{b: []byte("{\"a\":12345}\n")}))
	assert.Equal(t, "{\"a\":12345}\n", f.buf.String(), "no duplicated bytes across retries")
}

func TestIOWriterReportsAfterBoundedRetries(t *testing.T) {
	f := &flakyWriter{failures: 10}
	w := sjbytes.WriteToIOWriter(f, sjbytes.WithRetries(1))
	err := w.Line(&testLine{b: []byte("{}\n")})
	require.Error(t, err)
	assert.Equal(t, 8, f.failures, "two attempts total")
}

func TestIOWriterFlushAndClose(t *testing.T) {
	var buf sjutil.Buffer
	w := sjbytes.WriteToIOWriter(&buf)
	require.NoError(t, w.Flush())
	assert.False(t, w.Buffered())
	w.Close()
}
