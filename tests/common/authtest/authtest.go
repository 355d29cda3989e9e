//go:build unit || e2e

package authtest

import (
	"testing"
	"time"

	"homecare-booking/internal/pkg/config"
	"homecare-booking/internal/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// issues a signed token for the given subject, matching the server's signing config
func IssueToken(t *testing.T, cfg config.JWTConfig, subjectID uuid.UUID, role jwt.Role) string {
	t.Helper()

	duration, err := time.ParseDuration(cfg.Duration)
	require.NoError(t, err)

	token, err := jwt.NewService(cfg.Secret, duration).GenerateToken(subjectID, role)
	require.NoError(t, err)

	return token
}

func ClientToken(t *testing.T, cfg config.JWTConfig, clientID uuid.UUID) string {
	return IssueToken(t, cfg, clientID, jwt.RoleClient)
}

func OperatorToken(t *testing.T, cfg config.JWTConfig) string {
	return IssueToken(t, cfg, uuid.New(), jwt.RoleOperator)
}
