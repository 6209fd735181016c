package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCompanies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companies.txt")
	require.NoError(t, os.WriteFile(path, []byte(`
# pilot batch
https://orbitworks.io
https://initech.example

https://orbitworks.io
`), 0644))

	urls, err := readCompanies(path, []string{"https://hooli.example", "https://initech.example"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://orbitworks.io",
		"https://initech.example",
		"https://hooli.example",
	}, urls)
}

func TestReadCompaniesMissingFile(t *testing.T) {
	_, err := readCompanies("/nonexistent/companies.txt", nil)
	assert.Error(t, err)
}

func TestReadCompaniesArgsOnly(t *testing.T) {
	urls, err := readCompanies("", []string{" https://orbitworks.io ", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://orbitworks.io"}, urls)
}

func TestBatchCommand_NoCompanies(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "batch", "--role", "Backend Engineer")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "no companies given")
}
