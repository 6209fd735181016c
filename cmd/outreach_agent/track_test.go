package main

import (
	"os/exec"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTrackCommand_InvalidStatus(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "track",
		"--record", uuid.NewString(),
		"--status", "teleported")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "invalid status")
}

func TestTrackCommand_InvalidCategory(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "track",
		"--record", uuid.NewString(),
		"--status", "replied",
		"--reply", "sounds great",
		"--category", "intrested")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "invalid category")
}

func TestTrackCommand_BadRecordID(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "track", "--record", "nope", "--status", "sent")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "invalid record ID")
}
