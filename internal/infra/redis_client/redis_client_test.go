package redis_client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRedisClientReusesInstance(t *testing.T) {
	first, err := GetRedisClient("127.0.0.1:6390", WithPassword("secret"), WithDB(2), WithPoolSize(5))
	require.NoError(t, err)
	second, err := GetRedisClient("127.0.0.1:6390")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "secret", first.Options().Password)
	assert.Equal(t, 2, first.Options().DB)
	assert.Equal(t, 5, first.Options().PoolSize)
}

func TestGetRedisClientRequiresAddress(t *testing.T) {
	_, err := GetRedisClient("")
	assert.Error(t, err)
}
