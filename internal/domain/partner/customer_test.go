package partner

import (
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clock() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

func TestNewCustomer(t *testing.T) {
	c, err := NewCustomer(RegisterCustomerRequest{FirstName: " Ana ", LastName: "Silva", Document: "123"}, clock)
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Ana", c.FirstName)
	assert.Equal(t, "Ana Silva", c.FullName())
	assert.Equal(t, "2024-01-02T03:04:05.000Z", c.CreatedAt)

	t.Run("first name is required", func(t *testing.T) {
		_, err := NewCustomer(RegisterCustomerRequest{LastName: "Silva"}, clock)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "firstName", de.Field)
	})

	t.Run("blank names are rejected", func(t *testing.T) {
		_, err := NewCustomer(RegisterCustomerRequest{FirstName: "  ", LastName: "Silva"}, clock)
		assert.True(t, shared.IsValidation(err))
	})
}

func TestNewStore(t *testing.T) {
	s, err := NewStore("store-1", " Downtown ", clock)
	require.NoError(t, err)
	assert.Equal(t, "Downtown", s.Name)
	assert.Equal(t, "store-1", s.ID)

	s, err = NewStore("", "Uptown", clock)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)

	_, err = NewStore("x", "U", clock)
	assert.Error(t, err)
}
