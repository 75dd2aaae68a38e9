package facts

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cadfacts/pkg/types"
)

// --- test helpers ---

func testSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(types.StoreConfig{FactsDir: t.TempDir(), MaxResults: 20})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// testStores returns every backend available in the test environment.
func testStores(t *testing.T) map[string]Store {
	t.Helper()
	stores := map[string]Store{
		"memory": NewMemoryStore(20),
		"sqlite": testSQLite(t),
	}
	if dsn := os.Getenv("CADFACTS_TEST_POSTGRES_DSN"); dsn != "" {
		pg, err := NewPostgresStore(context.Background(), types.StoreConfig{
			Backend: types.StorePostgres, PostgresDSN: dsn, MaxResults: 20,
		})
		require.NoError(t, err)
		require.NoError(t, pg.Reset(context.Background()))
		t.Cleanup(func() { pg.Close() })
		stores["postgres"] = pg
	}
	return stores
}

func sampleBatch() *Batch {
	b := NewBatch("components")
	b.Add(types.ResourceFact("ns#Housing", "rdf#type", "ns#PhysicalComponent"))
	b.Add(types.StringFact("ns#Name-1", "ns#hasValueString", "Housing"))
	b.Add(types.FloatFact("ns#Mass-1", "ns#hasValueFloat", 2.5))
	b.Add(types.ResourceFact("ns#Housing", "rdf#type", "ns#PhysicalComponent"))
	return b
}

// --- tests ---

func TestBatch_DropsDuplicatesAndTagsOperation(t *testing.T) {
	b := sampleBatch()
	assert.Equal(t, 3, b.Len())
	for _, f := range b.Facts() {
		assert.Equal(t, "components", f.Operation)
	}
	assert.Equal(t, "components", b.Operation())
}

func TestStore_CommitAndRetrieve(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			done, err := store.Completed(ctx, "components")
			require.NoError(t, err)
			assert.False(t, done)

			b := sampleBatch()
			require.NoError(t, store.Commit(ctx, b.Operation(), b.Facts()))

			done, err = store.Completed(ctx, "components")
			require.NoError(t, err)
			assert.True(t, done)

			all, err := store.Retrieve(ctx, QueryOptions{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "ns#Housing", all[0].Subject)
			assert.Equal(t, types.DatatypeFloat, all[2].Datatype)

			v, err := all[2].Float()
			require.NoError(t, err)
			assert.Equal(t, 2.5, v)

			// Committing the same facts again stores nothing new.
			require.NoError(t, store.Commit(ctx, b.Operation(), b.Facts()))
			all, err = store.Retrieve(ctx, QueryOptions{})
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestStore_RetrieveFilters(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			b := sampleBatch()
			require.NoError(t, store.Commit(ctx, b.Operation(), b.Facts()))
			require.NoError(t, store.Emit(ctx, types.Fact{
				Subject: "ns#Shaft", Predicate: "rdf#type", Object: "ns#PhysicalComponent", Operation: "manual",
			}))

			tests := []struct {
				name string
				opts QueryOptions
				want int
			}{
				{"by subject", QueryOptions{Subject: "ns#Housing"}, 1},
				{"by predicate", QueryOptions{Predicate: "rdf#type"}, 2},
				{"by object", QueryOptions{Object: "Housing"}, 1},
				{"by operation", QueryOptions{Operation: "manual"}, 1},
				{"contains is case-insensitive", QueryOptions{Contains: "housing"}, 2},
				{"max results", QueryOptions{MaxResults: 1}, 1},
				{"no match", QueryOptions{Subject: "ns#Nothing"}, 0},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := store.Retrieve(ctx, tt.opts)
					require.NoError(t, err)
					assert.Len(t, got, tt.want)
				})
			}
		})
	}
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			b := sampleBatch()
			require.NoError(t, store.Commit(ctx, b.Operation(), b.Facts()))
			require.NoError(t, store.Reset(ctx))

			all, err := store.Retrieve(ctx, QueryOptions{})
			require.NoError(t, err)
			assert.Empty(t, all)

			done, err := store.Completed(ctx, "components")
			require.NoError(t, err)
			assert.False(t, done)
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := types.StoreConfig{FactsDir: dir}

	store, err := NewSQLiteStore(cfg)
	require.NoError(t, err)
	b := sampleBatch()
	require.NoError(t, store.Commit(ctx, b.Operation(), b.Facts()))
	require.NoError(t, store.Flush(ctx))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	all, err := reopened.Retrieve(ctx, QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ops, err := reopened.Operations(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "components", ops[0].Name)
	assert.Equal(t, 3, ops[0].FactCount)
	assert.False(t, ops[0].CompletedAt.IsZero())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, types.StoreConfig{Backend: types.StoreMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, types.StoreConfig{Backend: types.StoreSQLite, FactsDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	assert.IsType(t, &SQLiteStore{}, s)

	_, err = Open(ctx, types.StoreConfig{Backend: "oracle"})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Open(ctx, types.StoreConfig{Backend: types.StorePostgres})
	assert.Error(t, err)
}

func TestExportAndImport(t *testing.T) {
	ctx := context.Background()
	src := testSQLite(t)
	b := sampleBatch()
	require.NoError(t, src.Commit(ctx, b.Operation(), b.Facts()))

	for _, format := range []string{FormatYAML, FormatJSON} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := Export(ctx, src, &buf, format, QueryOptions{})
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			dst := NewMemoryStore(0)
			n, err = Import(ctx, dst, &buf, format)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			got, err := dst.Retrieve(ctx, QueryOptions{})
			require.NoError(t, err)
			assert.Equal(t, b.Facts(), got)
		})
	}
}

func TestExport_NTriples(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	b := sampleBatch()
	require.NoError(t, store.Commit(ctx, b.Operation(), b.Facts()))

	var buf bytes.Buffer
	_, err := Export(ctx, store, &buf, FormatNTriples, QueryOptions{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "<ns#Housing> <rdf#type> <ns#PhysicalComponent> .", lines[0])
	assert.Equal(t, `<ns#Mass-1> <ns#hasValueFloat> "2.5"^^<http://www.w3.org/2001/XMLSchema#float> .`, lines[2])
}

func TestNTriples_Escaping(t *testing.T) {
	tests := []struct {
		name string
		fact types.Fact
		want string
	}{
		{
			name: "space in component id",
			fact: types.ResourceFact("base#Cover Bolt", "rdf#type", "base#Part <A>"),
			want: `<base#Cover\u0020Bolt> <rdf#type> <base#Part\u0020\u003CA\u003E> .`,
		},
		{
			name: "control characters in literal",
			fact: types.StringFact("geo#n", "geo#hasValueString", "a\x00b\n\"c\"\\"),
			want: `<geo#n> <geo#hasValueString> "a\u0000b\n\"c\"\\"^^<http://www.w3.org/2001/XMLSchema#string> .`,
		},
		{
			name: "non-ASCII kept",
			fact: types.StringFact("geo#n", "geo#hasValueString", "Gehäuse"),
			want: `<geo#n> <geo#hasValueString> "Gehäuse"^^<http://www.w3.org/2001/XMLSchema#string> .`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want+"\n", ntriples([]types.Fact{tt.fact}))
		})
	}
}

func TestExportFile(t *testing.T) {
	ctx := context.Background()
	store := testSQLite(t)
	b := sampleBatch()
	require.NoError(t, store.Commit(ctx, b.Operation(), b.Facts()))

	path, n, err := ExportFile(ctx, store, store.Dir(), FormatJSON, QueryOptions{Operation: "components"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, filepath.Join(store.Dir(), "index", "export.json"), path)

	_, err = Export(ctx, store, &bytes.Buffer{}, "xml", QueryOptions{})
	assert.Error(t, err)
}
