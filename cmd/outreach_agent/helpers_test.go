package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/outreach-copilot/internal/types"
)

func TestParseChannel(t *testing.T) {
	channel, err := parseChannel("")
	require.NoError(t, err)
	assert.Equal(t, types.ChannelLinkedInMessage, channel)

	channel, err = parseChannel("email")
	require.NoError(t, err)
	assert.Equal(t, types.ChannelEmail, channel)

	_, err = parseChannel("carrier_pigeon")
	assert.ErrorContains(t, err, "invalid channel")
}

func TestParseTone(t *testing.T) {
	tone, err := parseTone("")
	require.NoError(t, err)
	assert.Equal(t, types.ToneProfessional, tone)

	tone, err = parseTone("direct")
	require.NoError(t, err)
	assert.Equal(t, types.ToneDirect, tone)

	_, err = parseTone("sarcastic")
	assert.ErrorContains(t, err, "invalid tone")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig("/nonexistent/config.json")
	assert.ErrorContains(t, err, "failed to load config")
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.DatabaseURL)
}
