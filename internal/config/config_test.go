package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"POLICYRAG_DOCS_DIR", "POLICYRAG_INDEX_DIR", "FAISS_INDEX_DIR", "OPENAI_MODEL", "POLICYRAG_ADDR", "POLICYRAG_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 200, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, "openai", cfg.Embedder.Type)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.OpenAI.Model)
	assert.Equal(t, float32(0), cfg.LLM.OpenAI.Temperature)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowOrigins)
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	path := writeConfig(t, `
documents:
  root: /srv/policies
embedder:
  type: hash
llm:
  type: extractive
chunker:
  chunk_size: 500
  chunk_overlap: 50
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/policies", cfg.Documents.Root)
	assert.Equal(t, "data/index", cfg.Index.Dir)
	assert.Equal(t, 512, cfg.Embedder.Hash.Dimension)
	assert.Nil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, 3, cfg.LLM.Extractive.MaxSentences)
	assert.Equal(t, 500, cfg.Chunker.ChunkSize)
	assert.Equal(t, 50, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, "recursive", cfg.Chunker.Type)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLICYRAG_DOCS_DIR", "/docs")
	t.Setenv("FAISS_INDEX_DIR", "/legacy")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("POLICYRAG_ADDR", "127.0.0.1:9000")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/docs", cfg.Documents.Root)
	assert.Equal(t, "/legacy", cfg.Index.Dir)
	assert.Equal(t, "gpt-4o", cfg.LLM.OpenAI.Model)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)

	t.Setenv("POLICYRAG_INDEX_DIR", "/preferred")
	cfg, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/preferred", cfg.Index.Dir)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"overlap too large": "chunker:\n  chunk_size: 100\n  chunk_overlap: 100\n",
		"unknown embedder":  "embedder:\n  type: word2vec\n",
		"unknown llm":       "llm:\n  type: oracle\n",
		"bad temperature":   "llm:\n  type: openai\n  openai:\n    temperature: 3\n",
		"negative top k":    "retrieval:\n  top_k: -1\n",
		"malformed":         "chunker: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	clearEnv(t)
	cfg := defaultConfig()
	cfg.Documents.Root = "/x"
	cfg.Retrieval.TopK = 7
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "policyrag", "config.yaml"), path)
	assert.FileExists(t, path)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)

	require.NoError(t, os.WriteFile("config.yaml", []byte("retrieval:\n  top_k: 2\n"), 0o644))
	cfg, path, err = LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", path)
	assert.Equal(t, 2, cfg.Retrieval.TopK)
}
