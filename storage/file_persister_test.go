package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFilePersisterPersist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report.pdf")

	p := &LocalFilePersister{}
	err := p.Persist(context.Background(), path, bytes.NewReader([]byte("%PDF-1.7 fake")))
	require.NoError(t, err)

	got, err := os.ReadFile(path) //nolint:forbidigo
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 fake", string(got))
}
