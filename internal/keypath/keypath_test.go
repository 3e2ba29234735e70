package keypath

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalise(t *testing.T) {
	t.Parallel()
	require.Equal(t, "list.0.name", Normalise("list[0].name"))
	require.Equal(t, "list.12", Normalise(" list[ 12 ] "))
	require.Equal(t, "../x", Normalise("../x"))
}

func TestParentBaseHead(t *testing.T) {
	t.Parallel()
	require.Equal(t, "a.b", Parent("a.b.c"))
	require.Equal(t, "", Parent("a"))
	require.Equal(t, "c", Base("a.b.c"))
	require.Equal(t, "a", Base("a"))
	require.Equal(t, "a", Head("a.b.c"))
	require.Equal(t, 3, Depth("a.b.c"))
	require.Equal(t, 0, Depth(""))
}

func TestRebase(t *testing.T) {
	t.Parallel()
	got, ok := Rebase("list.2.name", "list.2", "list.1")
	require.True(t, ok)
	require.Equal(t, "list.1.name", got)

	got, ok = Rebase("list.2", "list.2", "list.1")
	require.True(t, ok)
	require.Equal(t, "list.1", got)

	_, ok = Rebase("list.20", "list.2", "list.1")
	require.False(t, ok)
}

func TestIndexBelow(t *testing.T) {
	t.Parallel()
	i, ok := IndexBelow("list.3.name", "list")
	require.True(t, ok)
	require.Equal(t, 3, i)

	_, ok = IndexBelow("list.length", "list")
	require.False(t, ok)
	_, ok = IndexBelow("other.1", "list")
	require.False(t, ok)
}

func TestIndex(t *testing.T) {
	t.Parallel()
	for seg, want := range map[string]bool{"0": true, "17": true, "01": false, "x": false, "": false, "-1": false} {
		_, ok := Index(seg)
		require.Equal(t, want, ok, seg)
	}
}
