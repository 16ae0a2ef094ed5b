package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jewelcraft/metalpricing/internal/app"
	_ "github.com/jewelcraft/metalpricing/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	require.True(t, app.InTestMode())
	require.NotPanics(t, main)
}
