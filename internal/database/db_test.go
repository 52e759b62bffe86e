package database

import (
	"path/filepath"
	"testing"

	"arxiv_rag_go_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_SQLiteMemory(t *testing.T) {
	db, err := InitDB("sqlite", ":memory:")
	require.NoError(t, err)
	defer Close(db)

	paper := models.Paper{
		PaperID: "2401.00001v1",
		Title:   "Sparse Attention",
		Authors: []string{"Ada Lovelace", "Alan Turing"},
	}
	require.NoError(t, db.Create(&paper).Error)

	var got models.Paper
	require.NoError(t, db.Where("paper_id = ?", "2401.00001v1").First(&got).Error)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, got.Authors)
}

func TestInitDB_SQLiteFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rag.db")

	db, err := InitDB("sqlite", path)
	require.NoError(t, err)
	defer Close(db)

	assert.FileExists(t, path)
	assert.True(t, db.Migrator().HasTable(&models.Chunk{}))
	assert.True(t, db.Migrator().HasTable(&models.AskRecord{}))
}

func TestInitDB_ChunkIdentityIsUnique(t *testing.T) {
	db, err := InitDB("sqlite", ":memory:")
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, db.Create(&models.Chunk{PaperID: "p1", ChunkIndex: 0, Content: "a"}).Error)
	assert.Error(t, db.Create(&models.Chunk{PaperID: "p1", ChunkIndex: 0, Content: "b"}).Error)
}

func TestInitDB_UnknownDriver(t *testing.T) {
	_, err := InitDB("oracle", "dsn")
	assert.ErrorContains(t, err, "unsupported database driver")
}
