package killswitch_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/larsw/pmedge/internal/adapters/killswitch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_TracksExistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "STOP")
	ks := killswitch.New(path)

	assert.False(t, ks.Active())

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.True(t, ks.Active())

	require.NoError(t, os.Remove(path))
	assert.False(t, ks.Active())
}
