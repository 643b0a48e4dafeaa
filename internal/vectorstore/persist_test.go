package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policyrag/internal/domain"
	"policyrag/internal/embedding/hashing"
)

func buildSample(t *testing.T) (*Index, *hashing.Embedder) {
	t.Helper()
	emb := hashing.NewEmbedder(64)
	ix, err := Build(context.Background(), emb, chunksOf(
		"Attendance is mandatory for all lectures.",
		"Late submissions lose ten percent per day.",
		"Plagiarism results in disciplinary action.",
		"Attendance below seventy percent bars exams.",
	))
	require.NoError(t, err)
	return ix, emb
}

func TestPersistLoad_RoundTrip(t *testing.T) {
	ix, emb := buildSample(t)
	dir := filepath.Join(t.TempDir(), "index")
	require.NoError(t, Persist(ix, dir))
	assert.FileExists(t, filepath.Join(dir, DataFile))
	assert.FileExists(t, filepath.Join(dir, ManifestFile))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ix.ID(), loaded.ID())
	assert.Equal(t, ix.Len(), loaded.Len())
	assert.Equal(t, ix.Dimension(), loaded.Dimension())
	assert.Equal(t, ix.Chunks(), loaded.Chunks())

	for _, q := range []string{"attendance exams", "plagiarism", "late submissions"} {
		vec, err := emb.Embed(context.Background(), q)
		require.NoError(t, err)
		want, err := ix.Search(vec, 4)
		require.NoError(t, err)
		got, err := loaded.Search(vec, 4)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestLoad_AbsentOrEmptyDir(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrNotFound)

	empty := t.TempDir()
	assert.False(t, Exists(empty))
	_, err = Load(empty)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_CorruptAfterPartialRewrite(t *testing.T) {
	ix, _ := buildSample(t)
	dir := t.TempDir()
	require.NoError(t, Persist(ix, dir))

	// A rebuild that cleared the directory and died after the data file.
	require.NoError(t, Clear(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DataFile), []byte("partial"), 0o644))

	assert.True(t, Exists(dir))
	_, err := Load(dir)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}

func TestLoad_ChecksumMismatch(t *testing.T) {
	ix, _ := buildSample(t)
	dir := t.TempDir()
	require.NoError(t, Persist(ix, dir))

	path := filepath.Join(dir, DataFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)/2] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Load(dir)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}

func TestLoad_GarbageManifest(t *testing.T) {
	ix, _ := buildSample(t)
	dir := t.TempDir()
	require.NoError(t, Persist(ix, dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte("format: [oops"), 0o644))

	_, err := Load(dir)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}

func TestClear_RemovesContentsKeepsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "f"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DataFile), []byte("x"), 0o644))

	require.NoError(t, Clear(dir))
	assert.DirExists(t, dir)
	assert.False(t, Exists(dir))
	assert.NoError(t, Clear(filepath.Join(dir, "missing")))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DataFile)
	require.NoError(t, writeFileAtomic(path, []byte("first")))
	require.NoError(t, writeFileAtomic(path, []byte("second")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
	assert.NoFileExists(t, path+".tmp")

	err = writeFileAtomic(filepath.Join(dir, "missing", DataFile), []byte("x"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "missing", DataFile+".tmp"))
}
