package spanbridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveScope(t *testing.T) {
	reg := newFakeRegistry()
	root := reg.scope("")
	parent := reg.scope("a")

	tests := map[string]struct {
		ins  instructions
		want string
	}{
		"no naming inherits parent": {
			ins:  instructions{},
			want: "a",
		},
		"relative appends to parent": {
			ins:  instructions{relName: "b", hasRel: true},
			want: "a.b",
		},
		"absolute ignores parent": {
			ins:  instructions{absName: "x.y", hasAbs: true},
			want: "x.y",
		},
		"absolute beats relative": {
			ins: instructions{
				relName: "b", hasRel: true,
				absName: "x.y", hasAbs: true,
			},
			want: "x.y",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := resolveScope(root, parent, tc.ins)
			require.Equal(t, tc.want, got.(fakeScope).name)
		})
	}
}

func TestResolveScopeComposes(t *testing.T) {
	reg := newFakeRegistry()
	root := reg.scope("")

	child := resolveScope(root, reg.scope("a"), instructions{relName: "b", hasRel: true})
	require.Equal(t, "a.b", child.(fakeScope).name)

	grandchild := resolveScope(root, child, instructions{relName: "c", hasRel: true})
	require.Equal(t, "a.b.c", grandchild.(fakeScope).name)
}

func TestResolveScopeSharesParentHandle(t *testing.T) {
	reg := newFakeRegistry()
	parent := reg.scope("svc")

	got := resolveScope(reg.scope(""), parent, instructions{})
	require.Equal(t, Scope(parent), got)
}
