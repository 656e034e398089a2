package repository

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/libracore/circulation-service/circulation/internal/errs"
	"github.com/libracore/circulation-service/circulation/internal/model"
)

func TestBuildListQuery_SortWhitelist(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		name      string
		sortBy    string
		wantOrder string
		wantErr   bool
	}{
		{name: "empty defaults to title", sortBy: "", wantOrder: "ORDER BY title asc, id asc"},
		{name: "title", sortBy: "title", wantOrder: "ORDER BY title asc, id asc"},
		{name: "author", sortBy: "author", wantOrder: "ORDER BY author asc, id asc"},
		{name: "rating", sortBy: "rating", wantOrder: "ORDER BY rating asc, id asc"},
		{name: "publication year", sortBy: "publication_year", wantOrder: "ORDER BY publication_year asc, id asc"},
		{name: "injection attempt", sortBy: "DROP TABLE books", wantErr: true},
		{name: "injection with semicolon", sortBy: "title; drop table books --", wantErr: true},
		{name: "unknown column", sortBy: "borrower_name", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			query, _, err := buildListQuery(model.BooksFilter{}, tt.sortBy)
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, errors.Is(err, errs.ErrValidation))
				return
			}
			require.NoError(t, err)
			require.Contains(t, query, tt.wantOrder)
			require.NotContains(t, strings.ToLower(query), "drop")
		})
	}
}

func TestBuildListQuery_Filters(t *testing.T) {
	t.Parallel()

	t.Run("no filters means no where clause", func(t *testing.T) {
		t.Parallel()
		query, args, err := buildListQuery(model.BooksFilter{}, "")
		require.NoError(t, err)
		require.NotContains(t, query, "WHERE")
		require.Empty(t, args)
	})

	t.Run("search matches title or author through bound params", func(t *testing.T) {
		t.Parallel()
		query, args, err := buildListQuery(model.BooksFilter{Search: "clean"}, "")
		require.NoError(t, err)
		require.Contains(t, query, "title ILIKE $1")
		require.Contains(t, query, "author ILIKE $2")
		// the search text itself never appears in the statement
		require.NotContains(t, query, "clean")
		require.Equal(t, []interface{}{"%clean%", "%clean%"}, args)
	})

	t.Run("filters combine with and", func(t *testing.T) {
		t.Parallel()
		query, args, err := buildListQuery(model.BooksFilter{
			Search:   "kafka",
			Category: "Fiction",
			Language: "German",
			Status:   model.StatusAvailable,
		}, "author")
		require.NoError(t, err)
		require.Contains(t, query, "category = $")
		require.Contains(t, query, "language = $")
		require.Contains(t, query, "status = $")
		require.Contains(t, query, "ORDER BY author asc, id asc")
		require.Equal(t, []interface{}{"%kafka%", "%kafka%", "Fiction", "German", "Available"}, args)
	})
}
