package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "listing-api", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_RejectsBadEndpoint(t *testing.T) {
	_, err := Setup(context.Background(), "listing-api", "::not a url")
	assert.Error(t, err)
}
