package requestid

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	assert.Empty(t, FromContext(context.Background()))

	id := New()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	ctx := WithID(context.Background(), id)
	assert.Equal(t, id, FromContext(ctx))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("abc-123_DEF.4"))
	assert.True(t, Valid(New()))
	assert.False(t, Valid(""))
	assert.False(t, Valid("has space"))
	assert.False(t, Valid("line\nbreak"))
	assert.False(t, Valid(string(make([]byte, 65))))
}
