package wildmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcherBasics(t *testing.T) {
	m, err := New([]string{"foo/*.txt"}, nil)
	require.NoError(t, err)
	assert.True(t, m.Matches("foo/a.txt"))
	assert.False(t, m.Matches("foo/bar/a.txt"))
	assert.False(t, m.Matches("foo/a.txtx"))
	assert.False(t, m.Matches("a.txt"))
}

func TestMatcherEmptyIncludesMatchNothing(t *testing.T) {
	m, err := New(nil, []string{"foo"})
	require.NoError(t, err)
	assert.False(t, m.Matches("foo"))
	assert.False(t, m.Matches("anything"))
	assert.False(t, Empty.Matches("anything"))
	assert.True(t, Empty.IsEmpty())
}

func TestMatcherDoubleStarCrossesSegments(t *testing.T) {
	m, err := New([]string{`**\.java`}, nil)
	require.NoError(t, err)
	assert.True(t, m.Matches("file.java"))
	assert.True(t, m.Matches("one/file.java"))
	assert.True(t, m.Matches("a/b/c/file.java"))
	assert.False(t, m.Matches("one/file.javax"))
	assert.False(t, m.Matches("one/filexjava"))
}

func TestMatcherDoubleStarSegment(t *testing.T) {
	m, err := New([]string{"a/**/b"}, nil)
	require.NoError(t, err)
	assert.True(t, m.Matches("a/b"))
	assert.True(t, m.Matches("a/x/b"))
	assert.True(t, m.Matches("a/x/y/b"))
	assert.False(t, m.Matches("a/x"))

	m, err = New([]string{"dir/**"}, nil)
	require.NoError(t, err)
	assert.True(t, m.Matches("dir/a"))
	assert.True(t, m.Matches("dir/a/b"))
	assert.False(t, m.Matches("dir"))
}

func TestMatcherExcludes(t *testing.T) {
	m, err := New([]string{"**"}, []string{"**/BUILD", "third_party/**"})
	require.NoError(t, err)
	assert.True(t, m.Matches("src/main.go"))
	assert.False(t, m.Matches("BUILD"))
	assert.False(t, m.Matches("src/BUILD"))
	assert.False(t, m.Matches("third_party/lib/a.go"))
}

func TestMatcherQuestionMark(t *testing.T) {
	m, err := New([]string{"a?c"}, nil)
	require.NoError(t, err)
	assert.True(t, m.Matches("abc"))
	assert.False(t, m.Matches("a/c"))
	assert.False(t, m.Matches("ac"))
}

func TestMatcherValidation(t *testing.T) {
	_, err := New([]string{"/abs/path"}, nil)
	assert.Error(t, err)
	_, err = New([]string{"a/../b"}, nil)
	assert.Error(t, err)
	_, err = New([]string{"  "}, nil)
	assert.Error(t, err)
	_, err = New([]string{"ok"}, []string{"/bad"})
	assert.Error(t, err)
}

func TestMatcherEqualAndString(t *testing.T) {
	a, err := New([]string{"x/**"}, []string{"**/y"})
	require.NoError(t, err)
	b, err := New([]string{"x/**"}, []string{"**/y"})
	require.NoError(t, err)
	c, err := New([]string{"x/**"}, nil)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
	assert.Equal(t, `glob(include = ["x/**"], exclude = ["**/y"])`, a.String())
	assert.Equal(t, "glob(none)", Empty.String())
}

func TestMatcherCaseSensitive(t *testing.T) {
	m, err := New([]string{"README"}, nil)
	require.NoError(t, err)
	assert.True(t, m.Matches("README"))
	assert.False(t, m.Matches("readme"))
}
