package flagx

import (
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	serverFlags := []string{"-a", "-d", "-k", "-m"}

	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "keeps bind address, drops foreign flag",
			args:         []string{"-a", ":8443", "-v", "2"},
			allowedFlags: serverFlags,
			want:         []string{"-a", ":8443"},
		},
		{
			name:         "equals form survives intact",
			args:         []string{"-k=keys/psk.hex", "-v", "2"},
			allowedFlags: serverFlags,
			want:         []string{"-k=keys/psk.hex"},
		},
		{
			name:         "several owned flags keep their order",
			args:         []string{"-d", "postgres://localhost/vault", "-a", ":8443", "-x", "1"},
			allowedFlags: serverFlags,
			want:         []string{"-d", "postgres://localhost/vault", "-a", ":8443"},
		},
		{
			name:         "nothing owned yields empty slice",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: serverFlags,
			want:         []string{},
		},
		{
			name:         "trailing flag without a value passes through",
			args:         []string{"-k"},
			allowedFlags: serverFlags,
			want:         []string{"-k"},
		},
		{
			name:         "next dash token is not consumed as a value",
			args:         []string{"-k", "-a"},
			allowedFlags: serverFlags,
			want:         []string{"-k", "-a"},
		},
		{
			name:         "equals form may carry a dash-leading value",
			args:         []string{"-k=--odd.hex"},
			allowedFlags: []string{"-k"},
			want:         []string{"-k=--odd.hex"},
		},
		{
			name:         "empty argument list",
			args:         []string{},
			allowedFlags: serverFlags,
			want:         []string{},
		},
		{
			name:         "absolute path stays a single token",
			args:         []string{"-k", "/etc/imagevault/psk.hex"},
			allowedFlags: []string{"-k"},
			want:         []string{"-k", "/etc/imagevault/psk.hex"},
		},
		{
			name:         "repeated flag kept in order for last-wins parsing",
			args:         []string{"-a", ":8443", "-a", ":9443"},
			allowedFlags: []string{"-a"},
			want:         []string{"-a", ":8443", "-a", ":9443"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowedFlags)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FilterArgs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short form", func(t *testing.T) {
		os.Args = []string{"imagevault-server", "-c", "/etc/imagevault/server.json"}
		assert.Equal(t, "/etc/imagevault/server.json", JsonConfigFlags())
	})

	t.Run("long form", func(t *testing.T) {
		os.Args = []string{"imagevault-server", "-config", "server.json"}
		assert.Equal(t, "server.json", JsonConfigFlags())
	})

	t.Run("no config flag present", func(t *testing.T) {
		os.Args = []string{"imagevault-server", "-a", ":8443"}
		assert.Empty(t, JsonConfigFlags())
	})

	t.Run("later flag overrides earlier", func(t *testing.T) {
		os.Args = []string{"imagevault-server", "-c", "base.json", "-config", "override.json"}
		assert.Equal(t, "override.json", JsonConfigFlags())
	})
}
