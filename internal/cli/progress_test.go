package cli

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStartSpinnerWritesDescription(t *testing.T) {
	t.Parallel()

	out := new(lockedBuffer)
	stop := startSpinner(out, "Transcribing")
	require.NotNil(t, stop)
	stop()
	stop()

	require.Contains(t, out.String(), "Transcribing")
}

func TestStartSpinnerDisabled(t *testing.T) {
	t.Parallel()

	stop := startSpinner(nil, "Transcribing")
	require.NotNil(t, stop)
	stop()
}
