package db

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"maternar/store"
)

func TestEnsureTimezone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		tz   string
		want string
	}{
		{"adds default", "postgres://u:p@localhost:5432/maternar?sslmode=disable", "", "UTC"},
		{"adds configured", "postgres://u:p@localhost:5432/maternar", "America/Sao_Paulo", "America/Sao_Paulo"},
		{"keeps existing", "postgres://u:p@localhost:5432/maternar?TimeZone=Europe/Lisbon", "UTC", "Europe/Lisbon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ensureTimezone(tt.in, tt.tz)
			require.NoError(t, err)
			u, err := url.Parse(out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.Query().Get("TimeZone"))
		})
	}
}

func TestExtractDBName(t *testing.T) {
	assert.Equal(t, "portal", extractDBName("mongodb://localhost:27017/portal"))
	assert.Equal(t, "maternar", extractDBName("mongodb://localhost:27017"))
	assert.Equal(t, "maternar", extractDBName("mongodb://localhost:27017/"))
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, "op"))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound, "op"), store.ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey, "op"), store.ErrDuplicate)

	err := translate(assert.AnError, "insert")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "db insert")
}

func TestOpenRequiresURL(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}

func TestCommitOutsideTransaction(t *testing.T) {
	r := NewRepository(nil)
	assert.Error(t, r.Commit())
	assert.Error(t, r.Rollback())
}
