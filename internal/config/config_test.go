package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/editor-mailbox/pkg/mailbox"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "shared_memory.bin", cfg.Path)
	assert.Equal(t, mailbox.SmallCapacity, cfg.Capacity)
	assert.Equal(t, mailbox.DefaultDelimiter, cfg.Delimiter)
	assert.Equal(t, 16*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 10*time.Second, cfg.OpenTimeout)
	assert.Empty(t, cfg.AdminAddr)
	assert.True(t, cfg.OTelEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAILBOX_PATH", "/tmp/mailbox/region.bin")
	t.Setenv("MAILBOX_CAPACITY", "131072")
	t.Setenv("MAILBOX_DELIMITER", mailbox.LegacyDelimiter)
	t.Setenv("MAILBOX_TICK_INTERVAL", "5ms")
	t.Setenv("MAILBOX_ADMIN_ADDR", "127.0.0.1:9464")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/mailbox/region.bin", cfg.Path)
	assert.Equal(t, mailbox.LargeCapacity, cfg.Capacity)
	assert.Equal(t, 5*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, "127.0.0.1:9464", cfg.AdminAddr)

	mc := cfg.Mailbox(mailbox.RoleInitiator, "editor")
	assert.Equal(t, mailbox.RoleInitiator, mc.Role)
	assert.Equal(t, "editor", mc.Name)
	assert.Equal(t, mailbox.LegacyDelimiter, mc.Delimiter)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"MAILBOX_CAPACITY":      "8",
		"MAILBOX_TICK_INTERVAL": "0s",
		"MAILBOX_DELIMITER":     ",",
		"MAILBOX_OPEN_TIMEOUT":  "-1s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}

	t.Run("parse", func(t *testing.T) {
		t.Setenv("MAILBOX_CAPACITY", "lots")
		_, err := Load()
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "parse env:"))
	})
}
