package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/xojiakbarxolboyev/telegrambot/internal/store"
)

func TestUsersWorkbook(t *testing.T) {
	users := []store.User{
		{ID: 42, Name: "Ali", Age: "20", Region: "Tashkent", Phone: "+998901234567", Status: 1},
		{ID: 7, Name: "Vali", Age: "31", Region: "Samarqand", Phone: "+998907654321", Status: 2},
	}
	data, err := UsersWorkbook(users)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{UsersSheet}, f.GetSheetList())
	rows, err := f.GetRows(UsersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, UsersHeaders, rows[0])
	assert.Equal(t, []string{"1", "42", "Ali", "20", "Tashkent", "+998901234567"}, rows[1])
	assert.Equal(t, []string{"2", "7", "Vali", "31", "Samarqand", "+998907654321"}, rows[2])
}

func TestUsersWorkbookEmpty(t *testing.T) {
	data, err := UsersWorkbook(nil)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(UsersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
