package journal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUndefinedTable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: nil, want: false},
		{err: errors.New("boom"), want: false},
		{err: &pgconn.PgError{Code: "42P01"}, want: true},
		{err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "42P01"}), want: true},
		{err: &pgconn.PgError{Code: "23505"}, want: false},
	}
	for _, tc := range tests {
		if got := isUndefinedTable(tc.err); got != tc.want {
			t.Fatalf("%v: got %v want %v", tc.err, got, tc.want)
		}
	}
}
