package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/xrdgate/internal/adapter"
	"github.com/Ning0612/xrdgate/internal/domain"
	"github.com/Ning0612/xrdgate/internal/testutil"
)

func newAdapter(t *testing.T) (*Adapter, string) {
	t.Helper()
	root := t.TempDir()
	a, err := New(root)
	require.NoError(t, err)
	return a, root
}

func url(p string) string {
	return testutil.RootURL(p)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = New(file)
	assert.ErrorIs(t, err, domain.ErrNotDirectory)
}

func TestResolvePath_StaysInRoot(t *testing.T) {
	a, root := newAdapter(t)

	p, err := a.resolvePath("Stat", url("a/b"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b"), p)

	p, err = a.resolvePath("Stat", testutil.RootURL(""))
	require.NoError(t, err)
	assert.Equal(t, root, p)

	_, err = a.resolvePath("Stat", "/etc/passwd")
	assert.ErrorIs(t, err, syscall.EINVAL)
}

func TestOpenWriteReadStat(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()

	f, err := a.Open(ctx, url("data/run1.root"), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	fi, err := a.Stat(ctx, url("data/run1.root"))
	require.NoError(t, err)
	assert.Equal(t, "run1.root", fi.Name)
	assert.Equal(t, int64(11), fi.Size)
	assert.True(t, fi.IsFile())

	f, err = a.Open(ctx, url("data/run1.root"), os.O_RDONLY, 0)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Seek(6, io.SeekStart)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))
}

func TestStat_NotFound(t *testing.T) {
	a, _ := newAdapter(t)
	_, err := a.Stat(context.Background(), url("nope"))
	assert.ErrorIs(t, err, syscall.ENOENT)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMkdirRmdir(t *testing.T) {
	a, root := newAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.Mkdir(ctx, url("d"), 0755))
	assert.ErrorIs(t, a.Mkdir(ctx, url("d"), 0755), syscall.EEXIST)

	require.NoError(t, os.WriteFile(filepath.Join(root, "d", "f"), []byte("x"), 0644))
	assert.ErrorIs(t, a.Rmdir(ctx, url("d")), syscall.ENOTEMPTY)
	assert.ErrorIs(t, a.Rmdir(ctx, url("d/f")), syscall.ENOTDIR)

	assert.ErrorIs(t, a.Unlink(ctx, url("d")), syscall.EISDIR)
	require.NoError(t, a.Unlink(ctx, url("d/f")))
	require.NoError(t, a.Rmdir(ctx, url("d")))
}

func TestRenameChmodAccess(t *testing.T) {
	a, root := newAdapter(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(root, "old"), []byte("x"), 0644))

	require.NoError(t, a.Rename(ctx, url("old"), url("new")))
	_, err := os.Stat(filepath.Join(root, "new"))
	require.NoError(t, err)

	require.NoError(t, a.Chmod(ctx, url("new"), 0400))
	assert.NoError(t, a.Access(ctx, url("new"), adapter.AccessRead))
	assert.ErrorIs(t, a.Access(ctx, url("new"), adapter.AccessWrite), syscall.EACCES)
	assert.ErrorIs(t, a.Access(ctx, url("gone"), adapter.AccessExists), syscall.ENOENT)
}

func TestList(t *testing.T) {
	a, root := newAdapter(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("abc"), 0644))

	got := make(chan []domain.EntryStat, 1)
	err := a.List(context.Background(), url(""), func(entries []domain.EntryStat, err error) {
		require.NoError(t, err)
		got <- entries
	})
	require.NoError(t, err)

	var entries []domain.EntryStat
	testutil.AssertEventually(t, 5*time.Second, func() bool {
		select {
		case entries = <-got:
			return true
		default:
			return false
		}
	}, "listing never completed")

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	require.Len(t, entries, 2)
	assert.Equal(t, "f.txt", entries[0].Name)
	assert.Equal(t, int64(3), entries[0].Size)
	assert.True(t, entries[0].HasStat)
	assert.True(t, entries[1].Flags.IsDir)
}

func TestList_Missing(t *testing.T) {
	a, _ := newAdapter(t)

	errs := make(chan error, 1)
	require.NoError(t, a.List(context.Background(), url("missing"), func(_ []domain.EntryStat, err error) {
		errs <- err
	}))
	assert.ErrorIs(t, <-errs, syscall.ENOENT)
}

func TestChecksum(t *testing.T) {
	a, root := newAdapter(t)
	testutil.CreateTestFile(t, root, "f", []byte("hello world"))

	reply, err := a.Checksum(context.Background(), url("f"))
	require.NoError(t, err)
	assert.Equal(t, "adler32 1a0b045d", reply)
}

func TestChecksum_LargeFile(t *testing.T) {
	a, root := newAdapter(t)
	_, want := testutil.CreateTestFileWithSize(t, root, "big", 3*1024*1024+17)

	reply, err := a.Checksum(context.Background(), url("big"))
	require.NoError(t, err)
	assert.Equal(t, "adler32 "+want, reply)
}

func TestStatEntry(t *testing.T) {
	a, root := newAdapter(t)
	ctx := context.Background()
	testutil.CreateTestFile(t, root, "dir/run?1", []byte("abc"))
	testutil.CreateTestFile(t, root, "dir/a#b", []byte("x"))

	fi, err := a.StatEntry(ctx, url("dir")+"?authz=tok", "run?1")
	require.NoError(t, err)
	assert.Equal(t, "run?1", fi.Name)
	assert.Equal(t, int64(3), fi.Size)

	fi, err = a.StatEntry(ctx, url("dir"), "a#b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), fi.Size)

	_, err = a.StatEntry(ctx, url("dir"), "missing")
	assert.ErrorIs(t, err, syscall.ENOENT)

	_, err = a.StatEntry(ctx, url(""), "../outside")
	assert.ErrorIs(t, err, syscall.EACCES)
}
