package branchname

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseName(t *testing.T) {
	cases := []struct {
		identifier string
		want       string
	}{
		{"ABC-123", "agent/abc-123"},
		{"abc-123", "agent/abc-123"},
		{"ENG 42", "agent/eng-42"},
		{"Feature/Thing!", "agent/feature-thing-"},
		{"ПРОЕКТ-1", "agent/-------1"},
	}

	for _, c := range cases {
		require.Equal(t, c.want, BaseName(c.identifier))
	}
}

func TestBaseName_Shape(t *testing.T) {
	pattern := regexp.MustCompile(`^agent/[a-z0-9-]+$`)

	for _, id := range []string{"ABC-123", "x", "Weird_Id.v2", "42", ""} {
		require.Regexp(t, pattern, BaseName(id))
	}
}

func TestBaseName_EmptyIdentifier(t *testing.T) {
	// Пустой идентификатор не вырождается в голый префикс.
	require.Equal(t, "agent/issue", BaseName(""))
}

func TestNextAvailable_BaseFree(t *testing.T) {
	got := NextAvailable("ABC-123", ToSet(nil))
	require.Equal(t, "agent/abc-123", got)

	got = NextAvailable("ABC-123", ToSet([]string{"main", "develop"}))
	require.Equal(t, "agent/abc-123", got)
}

func TestNextAvailable_BaseTaken(t *testing.T) {
	existing := ToSet([]string{"main", "agent/abc-123"})
	require.Equal(t, "agent/abc-123-2", NextAvailable("ABC-123", existing))
}

func TestNextAvailable_LinearScan(t *testing.T) {
	existing := ToSet([]string{"agent/abc-123", "agent/abc-123-2", "agent/abc-123-3"})
	require.Equal(t, "agent/abc-123-4", NextAvailable("ABC-123", existing))
}

func TestNextAvailable_NeverReturnsTaken(t *testing.T) {
	existing := ToSet([]string{"agent/abc-123", "agent/abc-123-2"})
	got := NextAvailable("ABC-123", existing)
	require.False(t, existing[got])
}
