package enumerate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsinham/dicomharvest/internal/labels"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func subject(id int) labels.Subject {
	return labels.Subject{ID: id, Key: labels.Key(id, 5)}
}

func TestPaths_Order(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "00023", "FLAIR", "Image-1.dcm"))
	touch(t, filepath.Join(root, "00001", "T2w", "Image-1.dcm"))
	touch(t, filepath.Join(root, "00001", "FLAIR", "Image-2.dcm"))
	touch(t, filepath.Join(root, "00001", "FLAIR", "Image-1.dcm"))
	touch(t, filepath.Join(root, "00001", "FLAIR", "notes.txt"))

	tasks, err := Paths(Options{Root: root}, []labels.Subject{subject(1), subject(23)})
	require.NoError(t, err)

	var got []string
	for i, task := range tasks {
		assert.Equal(t, i, task.Index)
		rel, _ := filepath.Rel(root, task.Path)
		got = append(got, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{
		"00001/FLAIR/Image-1.dcm",
		"00001/FLAIR/Image-2.dcm",
		"00001/T2w/Image-1.dcm",
		"00023/FLAIR/Image-1.dcm",
	}, got)

	assert.Equal(t, "FLAIR", tasks[0].Series)
	assert.Equal(t, "T2w", tasks[2].Series)
	assert.Equal(t, 23, tasks[3].Subject.ID)
}

func TestPaths_SeriesSubsetAndPattern(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "00001", "FLAIR", "a.dcm"))
	touch(t, filepath.Join(root, "00001", "T1w", "a.dcm"))
	touch(t, filepath.Join(root, "00001", "T1w", "b.ima"))

	tasks, err := Paths(Options{Root: root, SeriesTypes: []string{"T1w"}, Pattern: "*.ima"}, []labels.Subject{subject(1)})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, filepath.Join(root, "00001", "T1w", "b.ima"), tasks[0].Path)
}

func TestPaths_MissingDirectories(t *testing.T) {
	tasks, err := Paths(Options{Root: t.TempDir()}, []labels.Subject{subject(1), subject(2)})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestPaths_MalformedPattern(t *testing.T) {
	_, err := Paths(Options{Root: t.TempDir(), Pattern: "[-"}, []labels.Subject{subject(1)})
	if err == nil {
		t.Fatal("expected error for malformed pattern")
	}
}
