// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromeLauncherWithHeadless(t *testing.T) {
	base := &ChromeLauncher{Headless: true, ExecPath: "/usr/bin/chromium", UserAgent: "menu-hunter"}

	l, ok := base.WithHeadless(false).(*ChromeLauncher)
	require.True(t, ok)
	assert.False(t, l.Headless)
	assert.Equal(t, "/usr/bin/chromium", l.ExecPath)
	assert.Equal(t, "menu-hunter", l.UserAgent)
	assert.True(t, base.Headless, "the configured launcher is unchanged")
}
