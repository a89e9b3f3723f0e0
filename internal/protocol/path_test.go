package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDecodePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want []string
	}{
		{
			name: "read with inner path",
			path: "/read/java.lang:type=Memory/HeapMemoryUsage/used",
			want: []string{"read", "java.lang:type=Memory", "HeapMemoryUsage", "used"},
		},
		{
			name: "exec without arguments",
			path: "/exec/my:type=Cache/clear",
			want: []string{"exec", "my:type=Cache", "clear"},
		},
		{
			name: "no leading slash",
			path: "version",
			want: []string{"version"},
		},
		{
			name: "repeated slashes collapse",
			path: "/read//app:type=Pool///Size",
			want: []string{"read", "app:type=Pool", "Size"},
		},
		{
			name: "escaped slash joins segments",
			path: "/read/app:type=Store/data/-/sub",
			want: []string{"read", "app:type=Store", "data/sub"},
		},
		{
			name: "terminated escape keeps following parameter separate",
			path: "/read/app:type=Store/data/-+/next",
			want: []string{"read", "app:type=Store", "data/", "next"},
		},
		{
			name: "double dash is two literal slashes",
			path: "/read/app:type=Store/data/--/sub",
			want: []string{"read", "app:type=Store", "data//sub"},
		},
		{
			name: "leading escape marker is dropped",
			path: "/-/read/app:type=Store",
			want: []string{"read", "app:type=Store"},
		},
		{
			name: "plus alone is an ordinary parameter",
			path: "/read/app:type=Store/+",
			want: []string{"read", "app:type=Store", "+"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePath_Empty(t *testing.T) {
	for _, path := range []string{"", "/", "///", "/-", "/--+/-"} {
		t.Run("path "+path, func(t *testing.T) {
			_, err := DecodePath(path)
			require.Error(t, err)
			var invalidErr *InvalidRequestError
			assert.ErrorAs(t, err, &invalidErr)
		})
	}
}

func TestEncodePath(t *testing.T) {
	tests := []struct {
		name   string
		params []string
		want   string
	}{
		{"plain", []string{"read", "java.lang:type=Memory", "HeapMemoryUsage"},
			"/read/java.lang:type=Memory/HeapMemoryUsage"},
		{"embedded slash", []string{"read", "app:type=Store", "data/sub"},
			"/read/app:type=Store/data/-/sub"},
		{"trailing slash", []string{"read", "app:type=Store", "data/"},
			"/read/app:type=Store/data/-+"},
		{"slash run", []string{"read", "app:type=Store", "a//b"},
			"/read/app:type=Store/a/--/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodePath(tt.params))
		})
	}
}

// Round-trip property: encoding then decoding restores the parameter
// sequence for any parameters within the protocol's limitations (no
// escape-marker-shaped content, no leading slash).
func TestPathCodec_RoundTrip(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(r, "n")
		params := make([]string, n)
		for i := range params {
			p := rapid.StringMatching(`[a-zA-Z0-9:=.,]+(/+[a-zA-Z0-9:=.,]+)*/{0,3}`).Draw(r, "param")
			params[i] = p
		}

		decoded, err := DecodePath(EncodePath(params))
		require.NoError(t, err)
		require.Equal(t, params, decoded)
	})
}

func TestIsEscapeMarker(t *testing.T) {
	assert.True(t, isEscapeMarker("-"))
	assert.True(t, isEscapeMarker("---"))
	assert.True(t, isEscapeMarker("-+"))
	assert.True(t, isEscapeMarker("---+"))
	assert.False(t, isEscapeMarker("+"))
	assert.False(t, isEscapeMarker(""))
	assert.False(t, isEscapeMarker("a-"))
	assert.False(t, isEscapeMarker("-a"))
	assert.False(t, isEscapeMarker("-+-"))
}
