package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachCommandTree(t *testing.T) {
	cmd := newAttachCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"write", "copy", "read", "delete", "gc"}, names)
}

func TestZoomCommandTree(t *testing.T) {
	cmd := newZoomCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"get", "set", "in", "out", "reset"}, names)
}

func TestGetServiceConfigDefaults(t *testing.T) {
	serviceName = ""
	serviceConfigPath = ""

	cfg := getServiceConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "paseo-desktopd", cfg.Name)
	assert.Equal(t, "Paseo Desktop Daemon", cfg.DisplayName)
	assert.Empty(t, cfg.ConfigPath)
}
