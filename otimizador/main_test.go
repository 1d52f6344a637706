package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLogFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "arquivo")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"cria o diretório", filepath.Join(dir, "logs", "otimizador.log"), false},
		{"diretório bloqueado por um arquivo", filepath.Join(blocker, "sub", "otimizador.log"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := openLogFile(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer f.Close()
			assert.FileExists(t, tt.path)
		})
	}
}
