package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMainReturnsWhenStartupSkipped(t *testing.T) {
	t.Setenv("ACCESSDESK_SKIP_STARTUP", "1")
	assert.NotPanics(t, main)
}
