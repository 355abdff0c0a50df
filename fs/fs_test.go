package appfs

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_EmailTemplates(t *testing.T) {
	entries, err := fs.ReadDir(FS, "templates/email")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"_base.gohtml",
		"_base.txt",
		"attendance_report.gohtml",
		"attendance_report.txt",
	}, names)

	for _, name := range names {
		data, err := fs.ReadFile(FS, "templates/email/"+name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}
}

func TestFS_Migrations(t *testing.T) {
	matches, err := fs.Glob(FS, "migrations/*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"migrations/00001_init.sql", "migrations/00002_location.sql"}, matches)
}
