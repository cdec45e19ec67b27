package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseA1(t *testing.T) {
	r, err := parseA1("Transactions!A:K")
	require.NoError(t, err)
	assert.Equal(t, a1Range{sheet: "Transactions", firstCol: 0, lastCol: 10, firstRow: -1, lastRow: -1}, r)

	r, err = parseA1("'Monthly_Summary'!B3:C3")
	require.NoError(t, err)
	assert.Equal(t, a1Range{sheet: "Monthly_Summary", firstCol: 1, lastCol: 2, firstRow: 2, lastRow: 2}, r)

	for _, bad := range []string{"A1:B2", "Sheet!", "Sheet!1:2", "Sheet!A0"} {
		_, err := parseA1(bad)
		assert.Error(t, err, bad)
	}
}

func TestMemoryStoreReadTrimsLikeTheAPI(t *testing.T) {
	m := NewMemoryStore()
	m.Seed("Settings", [][]interface{}{
		{"Setting_Name", "Setting_Value", "Last_Modified"},
		{"Currency", "INR", ""},
		{},
	})
	ctx := context.Background()

	rows, err := m.ReadRange(ctx, "Settings!A:C")
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{
		{"Setting_Name", "Setting_Value", "Last_Modified"},
		{"Currency", "INR"},
	}, rows)

	rows, err = m.ReadRange(ctx, "Settings!B2:B2")
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{{"INR"}}, rows)
	assert.Equal(t, 2, m.Reads())
}

func TestMemoryStoreWrites(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, m.AddSheet(ctx, "Budgets"))
	assert.Error(t, m.AddSheet(ctx, "Budgets"))

	require.NoError(t, m.UpdateRange(ctx, "Budgets!A1", [][]interface{}{{"Category", "Monthly_Budget"}}))
	require.NoError(t, m.AppendRows(ctx, "Budgets!A:F", [][]interface{}{{"Rent", "1000"}, {"Travel", "200"}}))
	require.NoError(t, m.UpdateRange(ctx, "Budgets!B3:B3", [][]interface{}{{"250"}}))
	require.NoError(t, m.DeleteRows(ctx, "Budgets", 1, 2))

	assert.Equal(t, [][]interface{}{
		{"Category", "Monthly_Budget"},
		{"Travel", "250"},
	}, m.Rows("Budgets"))

	sheets, err := m.ListSheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Budgets"}, sheets)

	_, err = m.ReadRange(ctx, "Missing!A:B")
	var rerr *RemoteError
	assert.True(t, errors.As(err, &rerr))
	assert.ErrorIs(t, m.DeleteRows(ctx, "Missing", 1, 2), ErrNotFound)
}
