package procurement

import (
	"testing"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/stretchr/testify/require"
)

func assertDomainErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	de := shared.IsDomainError(err)
	require.NotNil(t, de, "expected a domain error, got %T: %v", err, err)
	require.Equal(t, code, de.Code)
}
