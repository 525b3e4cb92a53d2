package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name            string
		originalError   error
		message         string
		expectedMessage string
	}{
		{
			name:            "wrap simple error",
			originalError:   errors.New("original error"),
			message:         "wrapper message",
			expectedMessage: "wrapper message: original error",
		},
		{
			name:            "empty wrapper message",
			originalError:   errors.New("original error"),
			message:         "",
			expectedMessage: ": original error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrappedError := WrapError(tt.originalError, tt.message)
			require.Error(t, wrappedError)
			assert.Equal(t, tt.expectedMessage, wrappedError.Error())
			assert.ErrorIs(t, wrappedError, tt.originalError)
		})
	}

	assert.NoError(t, WrapError(nil, "ignored"))
}

func TestInputError(t *testing.T) {
	err := NewInputError("url_list", 7, "http://", "missing host")

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "invalid target from url_list (line 7) 'http://': missing host", err.Error())

	var inputErr *InputError
	wrapped := WrapError(err, "normalize")
	require.True(t, errors.As(wrapped, &inputErr))
	assert.Equal(t, 7, inputErr.Line)
}

func TestEnrichmentError(t *testing.T) {
	cause := errors.New("handshake failure")
	err := NewEnrichmentError("ssl", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "ssl")
}

func TestCombineErrors(t *testing.T) {
	assert.NoError(t, CombineErrors(nil))
	assert.NoError(t, CombineErrors([]error{nil, nil}))

	single := errors.New("one")
	assert.Equal(t, single, CombineErrors([]error{nil, single}))

	combined := CombineErrors([]error{errors.New("a"), errors.New("b")})
	assert.EqualError(t, combined, "multiple errors occurred: [a; b]")
}

func TestFileManager_WriteFileAtomic(t *testing.T) {
	fm := NewFileManager(zerolog.Nop())
	path := filepath.Join(t.TempDir(), "nested", "out.json")

	require.NoError(t, fm.WriteFileAtomic(path, []byte(`{"ok":true}`), 0o644))

	data, err := fm.ReadFile(path, 0)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestFileManager_ReadFile_Limits(t *testing.T) {
	fm := NewFileManager(zerolog.Nop())
	dir := t.TempDir()

	_, err := fm.ReadFile(filepath.Join(dir, "missing"), 0)
	assert.ErrorIs(t, err, ErrNotFound)

	path := filepath.Join(dir, "big")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	_, err = fm.ReadFile(path, 5)
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}
