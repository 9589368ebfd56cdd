package dbutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFinalizeRebindsAndSwapsLimit(t *testing.T) {
	query, args := Finalize("SELECT * FROM pdf_documents WHERE user_id=? LIMIT ?,?", []interface{}{"u1", 0, 20})
	require.Equal(t, "SELECT * FROM pdf_documents WHERE user_id=$1 LIMIT $2 OFFSET $3", query)
	require.Equal(t, []interface{}{"u1", 20, 0}, args)
}

func TestFinalizeWithoutLimit(t *testing.T) {
	query, args := Finalize("DELETE FROM users WHERE id=?", []interface{}{"u1"})
	require.Equal(t, "DELETE FROM users WHERE id=$1", query)
	require.Equal(t, []interface{}{"u1"}, args)
}
