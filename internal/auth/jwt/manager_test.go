package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateToken(t *testing.T) {
	manager := NewManager("test-secret-key-32-chars-long-minimum!!", "aomail")

	t.Run("有效令牌通过校验", func(t *testing.T) {
		token, err := manager.Sign("user-1", "user@corp.test", time.Minute)
		require.NoError(t, err)

		claims, err := manager.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "user@corp.test", claims.Email)
		assert.Equal(t, "aomail", claims.Issuer)
	})

	t.Run("过期令牌返回ErrExpiredToken", func(t *testing.T) {
		token, err := manager.Sign("user-1", "user@corp.test", -time.Minute)
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("错误签名密钥被拒绝", func(t *testing.T) {
		other := NewManager("another-secret-key-32-chars-long-min!!!", "aomail")
		token, err := other.Sign("user-1", "user@corp.test", time.Minute)
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("畸形令牌被拒绝", func(t *testing.T) {
		_, err := manager.ValidateToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
