package declarative_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/SukkaW/tsurlfilter-sub001/declarative"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Write(t *testing.T) {
	t.Parallel()

	c := newTestConverter(t, declarative.DefaultMaxRules, declarative.DefaultMaxRegexpRules, 1)
	rs := convert(
		t,
		c,
		"||example.org^\n||ads.example^$redirect=noopjs\nexample.org##.banner\n||a.example^\n||a.example^$badfilter",
	)

	dir := t.TempDir()
	w := declarative.NewWriter(slogutil.NewDiscardLogger())

	err := w.Write(dir, rs)
	require.NoError(t, err)

	for _, name := range []string{
		declarative.RulesFileName,
		declarative.MetadataFileName,
		declarative.LazyMetadataFileName,
	} {
		assert.FileExists(t, filepath.Join(dir, rs.ID, name))
	}

	m, err := declarative.LoadMetadata(dir, rs.ID)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(rs.Metadata(), m))
	assert.Equal(t, declarative.Counters{Total: 3, Excluded: 1}, m.Counters)
	assert.Equal(t, declarative.SourceMap{
		1: {FilterID: testFilterID, Line: 0},
		2: {FilterID: testFilterID, Line: 1},
		3: {FilterID: testFilterID, Line: 1},
	}, m.SourceMap)

	lazy, err := declarative.LoadLazyMetadata(dir, rs.ID)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(rs.LazyMetadata(), lazy))

	loaded, err := declarative.LoadRules(dir, rs.ID)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(rs.Rules, loaded))

	t.Run("overwrite", func(t *testing.T) {
		empty := convert(t, c, "")
		empty.ID = rs.ID

		require.NoError(t, w.Write(dir, empty))

		loaded, err = declarative.LoadRules(dir, rs.ID)
		require.NoError(t, err)

		assert.Empty(t, loaded)
	})
}

func TestLoadMetadata_errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := declarative.LoadMetadata(dir, "missing")
	assert.ErrorIs(t, err, os.ErrNotExist)

	const id = "old"

	require.NoError(t, os.Mkdir(filepath.Join(dir, id), 0o755))

	err = os.WriteFile(
		filepath.Join(dir, id, declarative.MetadataFileName),
		[]byte(`{"id":"old","version":1}`),
		0o644,
	)
	require.NoError(t, err)

	_, err = declarative.LoadMetadata(dir, id)
	assert.ErrorIs(t, err, declarative.ErrMetadataVersion)
}
