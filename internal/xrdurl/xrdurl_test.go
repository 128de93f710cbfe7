package xrdurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/xrdgate/internal/domain"
)

func TestIsXrootd(t *testing.T) {
	assert.True(t, IsXrootd("root://host//path"))
	assert.False(t, IsXrootd("xroot://host//path"))
	assert.False(t, IsXrootd("davs://host/path"))
	assert.False(t, IsXrootd("/local/path"))
	assert.False(t, IsXrootd("rootx://host/path"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want URL
	}{
		{
			name: "double slash path",
			raw:  "root://eos.example.org//eos/user/f.dat",
			want: URL{Host: "eos.example.org", Port: "1094", Path: "/eos/user/f.dat"},
		},
		{
			name: "port and user",
			raw:  "root://alice@xrd.example.org:2094/data//run1/",
			want: URL{User: "alice", Host: "xrd.example.org", Port: "2094", Path: "/data/run1"},
		},
		{
			name: "host only",
			raw:  "root://xrd.example.org",
			want: URL{Host: "xrd.example.org", Port: "1094", Path: "/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want.User, u.User)
			assert.Equal(t, tt.want.Host, u.Host)
			assert.Equal(t, tt.want.Port, u.Port)
			assert.Equal(t, tt.want.Path, u.Path)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse("https://host/path")
	assert.ErrorIs(t, err, domain.ErrNotSupported)

	_, err = Parse("root:///path")
	assert.ErrorIs(t, err, domain.ErrNotSupported)
}

func TestNormalize(t *testing.T) {
	got, err := Normalize("root://xrd.example.org///data///f?svcClass=t1")
	require.NoError(t, err)
	assert.Equal(t, "root://xrd.example.org:1094//data/f?svcClass=t1", got)
}

func TestWithSpaceToken(t *testing.T) {
	got, err := WithSpaceToken("root://xrd.example.org//data/f", "ATLASDATADISK")
	require.NoError(t, err)
	assert.Equal(t, "root://xrd.example.org:1094//data/f?svcClass=ATLASDATADISK", got)

	got, err = WithSpaceToken("root://xrd.example.org//data/f", "")
	require.NoError(t, err)
	assert.Equal(t, "root://xrd.example.org:1094//data/f", got)
}

func TestJoin(t *testing.T) {
	u, err := Parse("root://xrd.example.org//data/dir?authz=x")
	require.NoError(t, err)

	child := u.Join("file.root")
	assert.Equal(t, "/data/dir/file.root", child.Path)
	assert.Equal(t, "x", child.Params.Get("authz"))
	assert.Equal(t, "/data/dir", u.Path)

	child.Params.Set("authz", "y")
	assert.Equal(t, "x", u.Params.Get("authz"))

	odd := u.Join("run?1")
	assert.Equal(t, "/data/dir/run?1", odd.Path)
	assert.Equal(t, "/data/dir/a#b", u.Join("a#b").Path)
}

func TestSplit(t *testing.T) {
	addr, path, err := Split("root://bob@xrd.example.org:1095//store/a.root?authz=abc")
	require.NoError(t, err)
	assert.Equal(t, "xrd.example.org:1095", addr)
	assert.Equal(t, "/store/a.root", path)

	_, _, err = Split("file:///tmp/a")
	assert.Error(t, err)
}
