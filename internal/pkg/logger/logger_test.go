package logger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "nil config uses defaults",
			config:  nil,
			wantErr: false,
		},
		{
			name: "console output",
			config: &Config{
				Level:  "info",
				Format: "console",
				Output: "console",
			},
			wantErr: false,
		},
		{
			name: "file output",
			config: &Config{
				Level:  "debug",
				Format: "json",
				Output: "file",
				File: FileConfig{
					Filename:   filepath.Join(t.TempDir(), "test.log"),
					MaxSize:    10,
					MaxAge:     7,
					MaxBackups: 3,
				},
			},
			wantErr: false,
		},
		{
			name: "invalid level",
			config: &Config{
				Level:  "verbose",
				Format: "json",
				Output: "console",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	ctx = WithRunID(ctx, "run-42")
	ctx = WithDocumentID(ctx, "doc-7")

	assert.Equal(t, "run-42", GetRunID(ctx))
	assert.Equal(t, "doc-7", GetDocumentID(ctx))

	assert.Empty(t, GetRunID(context.Background()))
	assert.Empty(t, GetDocumentID(context.Background()))
}

func TestFromContext(t *testing.T) {
	log, err := New(nil)
	require.NoError(t, err)

	ctx := ToContext(context.Background(), log)
	assert.NotNil(t, FromContext(ctx))

	// 未注入 logger 时回落全局 logger
	assert.NotNil(t, FromContext(context.Background()))
}

func TestLogger_With(t *testing.T) {
	log, err := New(nil)
	require.NoError(t, err)

	child := log.Named("pipeline")
	assert.NotNil(t, child)
	assert.Equal(t, log.Config(), child.Config())
}
