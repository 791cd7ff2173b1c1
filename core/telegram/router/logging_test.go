package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string  { return "queue full" }

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "start", normalizeHandlerName("/start"))
	assert.Equal(t, "admin_panel", normalizeHandlerName(" Admin Panel "))
	assert.Equal(t, "unknown", normalizeHandlerName(""))
}

func TestDeriveErrorCode(t *testing.T) {
	assert.Empty(t, deriveErrorCode(nil))
	assert.Equal(t, "QUEUE_FULL", deriveErrorCode(codedErr{}))
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
	assert.Equal(t, "WRAPERROR", deriveErrorCode(fmt.Errorf("w: %w", errors.New("x"))))
}
