package filestore

import (
	"encoding/csv"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	date := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))

	t.Run("Writes log line and file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		store := NewFileStore(fs, "/data")

		require.NoError(t, store.Store(Entry{
			UserID:         "u1",
			DisplayName:    "Ada, Lovelace",
			SubmissionInfo: "first try",
			FileName:       "../../etc/solution.py",
			FileContent:    []byte("print(42)"),
			Date:           date,
		}))
		require.NoError(t, store.Store(Entry{
			UserID:         "u1",
			DisplayName:    "Ada, Lovelace",
			SubmissionInfo: "second try",
			FileName:       `C:\work\solution.py`,
			FileContent:    []byte("print(43)"),
			Date:           date.Add(time.Hour),
		}))

		content, err := afero.ReadFile(fs, "/data/u1/solution.py")
		require.NoError(t, err)
		assert.Equal(t, "print(43)", string(content))

		f, err := fs.Open("/data/u1/submissions.log")
		require.NoError(t, err)
		defer f.Close()
		records, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			{"Fri, 01 Mar 2024 11:30:00 GMT", "Ada, Lovelace", "first try"},
			{"Fri, 01 Mar 2024 12:30:00 GMT", "Ada, Lovelace", "second try"},
		}, records)
	})

	t.Run("No file name only logs", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, NewFileStore(fs, "/data").Store(Entry{UserID: "u2", Date: date}))

		exists, err := afero.Exists(fs, "/data/u2/submissions.log")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Rejects traversal in user id", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		err := NewFileStore(fs, "/data").Store(Entry{UserID: "../evil", Date: date})
		assert.ErrorIs(t, err, ErrInvalidPath)
	})
}
