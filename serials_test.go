package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSerialFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "serials.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestReadSerialList(t *testing.T) {
	path := writeSerialFile(t, "C02ABC123\nC02DEF456\n")

	serials, err := readSerialList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"C02ABC123", "C02DEF456"}, serials)
}

func TestReadSerialList_FirstColumnOnly(t *testing.T) {
	path := writeSerialFile(t, "C02ABC123,Room 4,ignored\nC02DEF456,Lab\n")

	serials, err := readSerialList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"C02ABC123", "C02DEF456"}, serials)
}

func TestReadSerialList_SkipsBlankLines(t *testing.T) {
	path := writeSerialFile(t, "\nC02ABC123\n\n   \nC02DEF456\n\n")

	serials, err := readSerialList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"C02ABC123", "C02DEF456"}, serials)
}

func TestReadSerialList_RawValuesPreserved(t *testing.T) {
	// Normalization is the engine's job; the reader keeps raw text.
	path := writeSerialFile(t, "c02-abc 123\n")

	serials, err := readSerialList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"c02-abc 123"}, serials)
}

func TestReadSerialList_MissingFile(t *testing.T) {
	_, err := readSerialList(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening serial list")
}

func TestReadSerialList_EmptyFile(t *testing.T) {
	path := writeSerialFile(t, "")

	serials, err := readSerialList(path)
	require.NoError(t, err)
	assert.Empty(t, serials)
}
