package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName_Valid(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		domain    string
		propKey   string
		propValue string
	}{
		{"simple", "java.lang:type=Memory", "java.lang", "type", "Memory"},
		{"multiple properties", "my.app:type=Cache,name=users", "my.app", "name", "users"},
		{"empty domain", ":type=Memory", "", "type", "Memory"},
		{"value with equals", "app:query=a=b", "app", "query", "a=b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := ParseName(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.domain, n.Domain())
			v, ok := n.Property(tt.propKey)
			require.True(t, ok)
			assert.Equal(t, tt.propValue, v)
			assert.False(t, n.IsPattern())
		})
	}
}

func TestParseName_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no separator", "java.lang"},
		{"empty properties", "java.lang:"},
		{"bare property", "java.lang:type"},
		{"empty key", "java.lang:=Memory"},
		{"duplicate key", "java.lang:type=a,type=b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseName(tt.input)
			require.Error(t, err)
			var invalidErr *InvalidNameError
			assert.ErrorAs(t, err, &invalidErr)
		})
	}
}

func TestName_String_Canonical(t *testing.T) {
	a := MustParseName("app:b=2,a=1")
	b := MustParseName("app:a=1,b=2")
	assert.Equal(t, a.String(), b.String())
	assert.True(t, a.Equal(b))
	assert.Equal(t, "app:a=1,b=2", a.String())
}

func TestName_IsPattern(t *testing.T) {
	assert.True(t, MustParseName("*:type=Memory").IsPattern())
	assert.True(t, MustParseName("app:type=*").IsPattern())
	assert.True(t, MustParseName("app:*").IsPattern())
	assert.True(t, MustParseName("app:name=cache?").IsPattern())
	assert.False(t, MustParseName("app:type=Memory").IsPattern())
}

func TestName_Matches(t *testing.T) {
	tests := []struct {
		name      string
		pattern   string
		candidate string
		want      bool
	}{
		{"domain wildcard", "*:type=Memory", "java.lang:type=Memory", true},
		{"domain wildcard no match", "*:type=Memory", "java.lang:type=Threading", false},
		{"value wildcard", "app:name=c*", "app:name=cache", true},
		{"property list wildcard", "app:*", "app:type=Cache,name=users", true},
		{"subset with list wildcard", "app:type=Cache,*", "app:type=Cache,name=users", true},
		{"extra property without list wildcard", "app:type=C*", "app:type=Cache,name=users", false},
		{"exact name matches itself", "app:type=Cache", "app:type=Cache", true},
		{"exact name no match", "app:type=Cache", "app:type=Pool", false},
		{"question mark", "app:name=cach?", "app:name=cache", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern := MustParseName(tt.pattern)
			candidate := MustParseName(tt.candidate)
			assert.Equal(t, tt.want, pattern.Matches(candidate))
		})
	}
}
