package taxonomy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sikaRows() []Row {
	return []Row{
		{ID: 1, Name: "Construction"},
		{ID: 2, Name: "Grouting", ParentID: 1},
		{ID: 3, Name: "Cementitious Grouts", ParentID: 2},
		{ID: 4, Name: "Epoxy Grouts", ParentID: 2},
		{ID: 5, Name: "Waterproofing", ParentID: 1},
	}
}

func TestLoadMaterializesPaths(t *testing.T) {
	tree, err := Load(sikaRows())
	require.NoError(t, err)

	assert.Equal(t, []int{1}, tree.Node(1).Path)
	assert.Equal(t, []int{1, 2}, tree.Node(2).Path)
	assert.Equal(t, []int{1, 2, 3}, tree.Node(3).Path)
	assert.Equal(t, "1.2.3", tree.Node(3).PathString())
}

func TestDisplayPath(t *testing.T) {
	tree, err := Load(sikaRows())
	require.NoError(t, err)

	path, err := tree.DisplayPath(3)
	require.NoError(t, err)
	assert.Equal(t, "Construction > Grouting > Cementitious Grouts", path)

	_, err = tree.DisplayPath(99)
	assert.Error(t, err)
}

func TestLeaves(t *testing.T) {
	tree, err := Load(sikaRows())
	require.NoError(t, err)

	leaves := tree.Leaves()
	ids := make([]int, len(leaves))
	for i, n := range leaves {
		ids[i] = n.ID
	}
	assert.Equal(t, []int{3, 4, 5}, ids)
}

func TestLoadRejectsMalformedDefinitions(t *testing.T) {
	tests := []struct {
		name   string
		rows   []Row
		reason string
	}{
		{
			name:   "duplicate id",
			rows:   []Row{{ID: 1, Name: "A"}, {ID: 1, Name: "B"}},
			reason: "duplicate id",
		},
		{
			name:   "dangling parent",
			rows:   []Row{{ID: 1, Name: "A", ParentID: 7}},
			reason: "parent_id 7 does not exist",
		},
		{
			name:   "self parent",
			rows:   []Row{{ID: 1, Name: "A", ParentID: 1}},
			reason: "own parent",
		},
		{
			name: "cycle",
			rows: []Row{
				{ID: 1, Name: "A", ParentID: 2},
				{ID: 2, Name: "B", ParentID: 1},
			},
			reason: "cycle",
		},
		{
			name:   "empty name",
			rows:   []Row{{ID: 1, Name: "  "}},
			reason: "empty name",
		},
		{
			name:   "non-positive id",
			rows:   []Row{{ID: 0, Name: "A"}},
			reason: "positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.rows)
			require.Error(t, err)
			var mtErr *MalformedTaxonomyError
			require.ErrorAs(t, err, &mtErr)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestFingerprintChangesWithContentAndModel(t *testing.T) {
	base, err := Load(sikaRows())
	require.NoError(t, err)

	renamed := sikaRows()
	renamed[2].Name = "Cement Grouts"
	changed, err := Load(renamed)
	require.NoError(t, err)

	assert.Equal(t, base.Fingerprint("m1"), base.Fingerprint("m1"))
	assert.NotEqual(t, base.Fingerprint("m1"), changed.Fingerprint("m1"))
	assert.NotEqual(t, base.Fingerprint("m1"), base.Fingerprint("m2"))
}

func TestLoadCSV(t *testing.T) {
	const def = `id,name,parent_id,path
1,Construction,,1
2,Grouting,1,1.2
3,Cementitious Grouts,2.0,1.2.3
`
	tree, err := LoadCSV(strings.NewReader(def))
	require.NoError(t, err)
	assert.Equal(t, 3, tree.Len())
	assert.Equal(t, 2, tree.Node(3).ParentID)
}

func TestLoadCSVRejectsMismatchedPath(t *testing.T) {
	const def = `id,name,parent_id,path
1,Construction,,1
2,Grouting,1,7.2
`
	_, err := LoadCSV(strings.NewReader(def))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestLoadCSVRejectsMissingColumns(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("id,name\n1,A\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parent_id")
}

func TestChildren(t *testing.T) {
	tree, err := Load(sikaRows())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5}, tree.Children(1))
	assert.Empty(t, tree.Children(3))
}
