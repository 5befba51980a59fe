package cachetree

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/linksync/internal/domain"
)

// testRoot is a source root that does not exist on disk, so ResolvePath
// leaves it as is.
var testRoot = filepath.FromSlash("/linksync-test-does-not-exist/src")

func p(parts ...string) string {
	return filepath.Join(append([]string{testRoot}, parts...)...)
}

func TestInsert_CreatesRootAndLeaf(t *testing.T) {
	forest := NewForest()

	require.NoError(t, forest.Insert(p("a.mp4"), testRoot))

	require.Len(t, forest.Roots, 1)
	assert.Equal(t, testRoot, forest.Roots[0].Name)
	assert.Equal(t, []Entry{Leaf("a.mp4")}, forest.Roots[0].Children)
}

func TestInsert_SharedPrefixReusesDirectory(t *testing.T) {
	forest := NewForest()

	require.NoError(t, forest.Insert(p("show", "s1", "e1.mp4"), testRoot))
	require.NoError(t, forest.Insert(p("show", "s1", "e2.mp4"), testRoot))
	require.NoError(t, forest.Insert(p("show", "s2", "e1.mp4"), testRoot))

	root := forest.Roots[0]
	require.Len(t, root.Children, 1, "expected one shared 'show' node")
	show, ok := root.Children[0].(*Node)
	require.True(t, ok)
	assert.Equal(t, "show", show.Name)
	require.Len(t, show.Children, 2)

	s1 := show.Children[0].(*Node)
	assert.Equal(t, "s1", s1.Name)
	assert.Equal(t, []Entry{Leaf("e1.mp4"), Leaf("e2.mp4")}, s1.Children)
}

func TestInsert_DuplicateRejected(t *testing.T) {
	forest := NewForest()
	require.NoError(t, forest.Insert(p("dir", "b.mp4"), testRoot))

	err := forest.Insert(p("dir", "b.mp4"), testRoot)

	var dupErr *DuplicateLinkError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, p("dir", "b.mp4"), dupErr.Path)
	assert.True(t, errors.Is(err, domain.ErrDuplicateLink))
	assert.Equal(t, 1, forest.LeafCount())
}

func TestInsert_EmptyPath(t *testing.T) {
	forest := NewForest()

	err := forest.Insert(testRoot, testRoot)

	var emptyErr *EmptyPathError
	require.ErrorAs(t, err, &emptyErr)
	assert.ErrorIs(t, err, domain.ErrEmptyPath)
	assert.Empty(t, forest.Roots)
}

func TestInsert_OutsideRoot(t *testing.T) {
	forest := NewForest()

	err := forest.Insert(filepath.FromSlash("/elsewhere/file.mp4"), testRoot)

	assert.ErrorIs(t, err, domain.ErrOutsideRoot)
	assert.Empty(t, forest.Roots)
}

func TestInsert_SeparateRootsPerSource(t *testing.T) {
	other := filepath.FromSlash("/linksync-test-does-not-exist/other")
	forest := NewForest()

	require.NoError(t, forest.Insert(p("a.mp4"), testRoot))
	require.NoError(t, forest.Insert(filepath.Join(other, "a.mp4"), other))
	require.NoError(t, forest.Insert(p("b.mp4"), testRoot))

	require.Len(t, forest.Roots, 2)
	assert.Equal(t, testRoot, forest.Roots[0].Name)
	assert.Equal(t, other, forest.Roots[1].Name)
	assert.Equal(t, 3, forest.LeafCount())
}

func TestInsert_AmbiguousDirectoryFailsFast(t *testing.T) {
	root := NewNode(testRoot)
	root.AddDir("show").AddLeaf("a.mp4")
	root.AddDir("show").AddLeaf("b.mp4")
	forest := &Forest{Roots: []*Node{root}}

	err := forest.Insert(p("show", "c.mp4"), testRoot)

	var ambErr *AmbiguousDirectoryError
	require.ErrorAs(t, err, &ambErr)
	assert.Equal(t, "show", ambErr.Name)
	assert.Equal(t, 2, ambErr.Count)
}

func TestInsert_AmbiguousRootFailsFast(t *testing.T) {
	forest := &Forest{Roots: []*Node{NewNode(testRoot), NewNode(testRoot)}}

	err := forest.Insert(p("a.mp4"), testRoot)

	assert.ErrorIs(t, err, domain.ErrAmbiguousDirectory)
}

func TestInsert_LeafAndDirectoryMayShareName(t *testing.T) {
	forest := NewForest()

	require.NoError(t, forest.Insert(p("extras"), testRoot))
	require.NoError(t, forest.Insert(p("extras", "clip.mp4"), testRoot))

	set := forest.Flatten()
	assert.True(t, set.Contains(p("extras")))
	assert.True(t, set.Contains(p("extras", "clip.mp4")))
}

func TestFlatten_Completeness(t *testing.T) {
	paths := []string{
		p("a.mp4"),
		p("x", "b.mp4"),
		p("x", "c.srt"),
		p("x", "y", "z", "d.mp4"),
		p("w", "e.mp4"),
		p("x", "y", "f.mp4"),
	}

	for seed := int64(0); seed < 5; seed++ {
		shuffled := append([]string(nil), paths...)
		rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		forest := NewForest()
		for _, path := range shuffled {
			require.NoError(t, forest.Insert(path, testRoot))
		}

		set := forest.Flatten()
		assert.Equal(t, len(paths), set.Len())
		for _, path := range paths {
			assert.True(t, set.Contains(path), "missing %s", path)
		}
	}
}

func TestFlatten_Empty(t *testing.T) {
	assert.Equal(t, 0, NewForest().Flatten().Len())
}

func TestFlatten_Sorted(t *testing.T) {
	forest := NewForest()
	require.NoError(t, forest.Insert(p("b.mp4"), testRoot))
	require.NoError(t, forest.Insert(p("a.mp4"), testRoot))

	assert.Equal(t, []string{p("a.mp4"), p("b.mp4")}, forest.Flatten().Sorted())
}

func TestPersist_RoundTrip(t *testing.T) {
	forest := NewForest()
	for _, path := range []string{p("a.mp4"), p("x", "b.mp4"), p("x", "y", "c.srt")} {
		require.NoError(t, forest.Insert(path, testRoot))
	}

	parsed, err := Parse(forest.Persist())
	require.NoError(t, err)
	assert.Equal(t, forest.Flatten(), parsed.Flatten())
	assert.Equal(t, forest, parsed)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	forest := NewForest()
	require.NoError(t, forest.Insert(p("x", "b.mp4"), testRoot))
	require.NoError(t, forest.Insert(p("a.mp4"), testRoot))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, forest))

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, forest.Flatten(), decoded.Flatten())
}

func TestEncode_Format(t *testing.T) {
	forest := NewForest()
	require.NoError(t, forest.Insert("/r/d/f.mp4", "/r"))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, forest))

	expected := `[
    {
        "name": "/r",
        "sub": [
            {
                "name": "d",
                "sub": [
                    "f.mp4"
                ]
            }
        ]
    }
]
`
	if filepath.Separator == '/' {
		assert.Equal(t, expected, buf.String())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     any
		target  any
		message string
	}{
		{
			name:    "document not an array",
			doc:     map[string]any{"name": "/r", "sub": []any{}},
			target:  new(*InvalidFieldError),
			message: "(root)",
		},
		{
			name:    "missing name",
			doc:     []any{map[string]any{"sub": []any{}}},
			target:  new(*MissingFieldError),
			message: `"name"`,
		},
		{
			name:    "missing sub",
			doc:     []any{map[string]any{"name": "/r"}},
			target:  new(*MissingFieldError),
			message: `node /r: missing field "sub"`,
		},
		{
			name:    "nested missing sub",
			doc:     []any{map[string]any{"name": "/r", "sub": []any{map[string]any{"name": "d"}}}},
			target:  new(*MissingFieldError),
			message: "node /r/d",
		},
		{
			name:    "child of wrong type",
			doc:     []any{map[string]any{"name": "/r", "sub": []any{"a.mp4", 42.0}}},
			target:  new(*InvalidChildTypeError),
			message: "sub[1] has type number",
		},
		{
			name:    "name of wrong type",
			doc:     []any{map[string]any{"name": 7.0, "sub": []any{}}},
			target:  new(*InvalidFieldError),
			message: `field "name"`,
		},
		{
			name:    "sub of wrong type",
			doc:     []any{map[string]any{"name": "/r", "sub": "a.mp4"}},
			target:  new(*InvalidFieldError),
			message: `field "sub" has type string`,
		},
		{
			name:    "root of wrong type",
			doc:     []any{"a.mp4"},
			target:  new(*InvalidFieldError),
			message: "#0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forest, err := Parse(tt.doc)
			require.Error(t, err)
			assert.Nil(t, forest)
			assert.ErrorAs(t, err, tt.target)
			assert.ErrorIs(t, err, domain.ErrCacheMalformed)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode(strings.NewReader("[{"))

	assert.ErrorIs(t, err, domain.ErrCacheMalformed)
}

func TestDecode_CompactDocument(t *testing.T) {
	doc := `[{"name": "/media/src", "sub": ["a.mp4", {"name": "show", "sub": ["e1.mp4"]}]}]`

	forest, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)

	set := forest.Flatten()
	assert.True(t, set.Contains(filepath.Join("/media/src", "a.mp4")))
	assert.True(t, set.Contains(filepath.Join("/media/src", "show", "e1.mp4")))
}

func TestValidate(t *testing.T) {
	good := NewForest()
	require.NoError(t, good.Insert(p("x", "a.mp4"), testRoot))
	assert.NoError(t, good.Validate())

	dupLeaf := &Forest{Roots: []*Node{{Name: "/r", Children: []Entry{Leaf("a"), Leaf("a")}}}}
	assert.ErrorIs(t, dupLeaf.Validate(), domain.ErrDuplicateLink)

	dupDir := NewNode("/r")
	dupDir.AddDir("d")
	dupDir.AddDir("d")
	assert.ErrorIs(t, (&Forest{Roots: []*Node{dupDir}}).Validate(), domain.ErrAmbiguousDirectory)

	dupRoot := &Forest{Roots: []*Node{NewNode("/r"), NewNode("/r")}}
	assert.ErrorIs(t, dupRoot.Validate(), domain.ErrAmbiguousDirectory)
}

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), "/state/cache.json")

	forest, found, err := store.Load()

	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, forest.Roots)
}

func TestStore_SaveLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := NewStore(fsys, "/state/nested/cache.json")

	forest := NewForest()
	require.NoError(t, forest.Insert(p("x", "a.mp4"), testRoot))
	require.NoError(t, store.Save(forest))

	loaded, found, err := store.Load()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, forest.Flatten(), loaded.Flatten())
}

func TestStore_LoadMalformed(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/cache.json", []byte(`[{"name": "/r"}]`), 0644))

	_, found, err := NewStore(fsys, "/cache.json").Load()

	assert.True(t, found)
	var missing *MissingFieldError
	assert.ErrorAs(t, err, &missing)
	assert.Contains(t, err.Error(), "/cache.json")
}

func TestResolvePath_MissingTailUnderLink(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "real")
	require.NoError(t, os.MkdirAll(target, 0755))
	alias := filepath.Join(base, "alias")
	if err := os.Symlink(target, alias); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	want, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)

	got, err := ResolvePath(filepath.Join(alias, "missing", "x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(want, "missing", "x"), got)

	got, err = ResolvePath(alias)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIsWithin(t *testing.T) {
	dir := p("media")

	assert.True(t, IsWithin(dir, dir))
	assert.True(t, IsWithin(p("media", "out"), dir))
	assert.True(t, IsWithin(p("media", "a", "b"), dir))
	assert.False(t, IsWithin(p("mediaplus"), dir))
	assert.False(t, IsWithin(p(), dir))
	assert.False(t, IsWithin(p("other", "media"), dir))
}
