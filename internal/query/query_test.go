package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PreservesOrderAndRoundTrips(t *testing.T) {
	q, err := Parse("?q=acme&status=ACTIVE&sort=name%3Aasc&utm_source=mail")
	require.NoError(t, err)

	assert.Equal(t, []string{"q", "status", "sort", "utm_source"}, q.Keys())
	assert.Equal(t, "name:asc", q.Value("sort"))
	assert.Equal(t, "q=acme&status=ACTIVE&sort=name%3Aasc&utm_source=mail", q.Encode())

	again, err := Parse(q.Encode())
	require.NoError(t, err)
	assert.True(t, q.Equal(again))
}

func TestParse_RepeatedKeyKeepsFirstPositionLastValue(t *testing.T) {
	q, err := Parse("a=1&b=2&a=3")
	require.NoError(t, err)
	assert.Equal(t, []Term{{"a", "3"}, {"b", "2"}}, q.Terms())
}

func TestParse_DropsEmptyValuesAndRejectsBadEscapes(t *testing.T) {
	q, err := Parse("a=&b=1&&=x")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, q.Keys())

	_, err = Parse("a=%zz")
	require.Error(t, err)
}

func TestWith_ReplacesInPlaceAndRemovesOnEmpty(t *testing.T) {
	q := Of("a", "1", "b", "2", "c", "3")

	q2 := q.With("b", "20")
	assert.Equal(t, "a=1&b=20&c=3", q2.Encode())
	assert.Equal(t, "a=1&b=2&c=3", q.Encode(), "original must not change")

	q3 := q2.With("b", "")
	assert.Equal(t, "a=1&c=3", q3.Encode())

	q4 := q3.With("d", "4")
	assert.Equal(t, "a=1&c=3&d=4", q4.Encode())
}

func TestMerge_AppliesPatchInOrder(t *testing.T) {
	q := Of("q", "acme", "status", "ACTIVE", "page", "2")
	got := q.Merge(Patch{Set("sort", "name:asc"), Unset("status"), Set("page", "3")})
	assert.Equal(t, "q=acme&page=3&sort=name%3Aasc", got.Encode())
	assert.Equal(t, []string{"sort", "status", "page"}, Patch{Set("sort", "x"), Unset("status"), Set("page", "3")}.Keys())
}

func TestChanged(t *testing.T) {
	a := Of("q", "a", "page", "2", "sort", "name:asc")
	b := Of("q", "ab", "page", "2", "f_status", "ACTIVE")
	assert.Equal(t, []string{"q", "sort", "f_status"}, Changed(a, b))
	assert.Empty(t, Changed(a, a))
}

func TestMap(t *testing.T) {
	assert.Equal(t, map[string]string{"q": "acme", "status": "ACTIVE"}, Of("q", "acme", "status", "ACTIVE").Map())
}
