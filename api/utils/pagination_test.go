package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPagination(t *testing.T) {
	r := httptest.NewRequest("GET", "/imports?owner_id=o1", nil)
	params, err := ExtractPagination(r)
	require.NoError(t, err)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 10, params.Limit)
	assert.Equal(t, 0, params.Offset)

	r = httptest.NewRequest("GET", "/imports?page=3&limit=25", nil)
	params, err = ExtractPagination(r)
	require.NoError(t, err)
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, 25, params.Limit)
	assert.Equal(t, 50, params.Offset)

	r = httptest.NewRequest("GET", "/imports?limit=9999", nil)
	params, err = ExtractPagination(r)
	require.NoError(t, err)
	assert.Equal(t, MaxPageLimit, params.Limit, "limit is capped")

	r = httptest.NewRequest("GET", "/imports?page=0", nil)
	_, err = ExtractPagination(r)
	assert.Error(t, err)

	r = httptest.NewRequest("GET", "/imports?limit=abc", nil)
	_, err = ExtractPagination(r)
	assert.Error(t, err)
}

func TestSetPaginationStats(t *testing.T) {
	p := PaginationParams{Page: 1, Limit: 10}
	p.SetPaginationStats(45)
	assert.Equal(t, 45, p.TotalRecords)
	assert.Equal(t, 5, p.TotalPages)

	p.SetPaginationStats(0)
	assert.Equal(t, 0, p.TotalPages)
}
