package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Read returns the contents of a file under testdata/, with Windows line
// endings folded so spans are stable across checkouts.
func Read(t testing.TB, elem ...string) string {
	t.Helper()
	path := filepath.Join(append([]string{"testdata"}, elem...)...)
	data, err := os.ReadFile(path)
	require.NoError(t, err, "read fixture %s", path)
	return strings.ReplaceAll(string(data), "\r\n", "\n")
}
