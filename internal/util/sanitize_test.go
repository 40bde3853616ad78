package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"image-manager/pkg/apierror"
)

func TestSecureFilename(t *testing.T) {
	t.Parallel()

	t.Run("lowercases and joins whitespace", func(t *testing.T) {
		actual, err := SecureFilename("My Photo.PNG")
		require.NoError(t, err)
		require.Equal(t, "my_photo.png", actual)
	})

	t.Run("strips path components", func(t *testing.T) {
		actual, err := SecureFilename("../../etc/passwd")
		require.NoError(t, err)
		require.Equal(t, "etc_passwd", actual)
	})

	t.Run("removes leading dots", func(t *testing.T) {
		actual, err := SecureFilename(".hidden.jpg")
		require.NoError(t, err)
		require.Equal(t, "hidden.jpg", actual)
	})

	t.Run("transliterates accents", func(t *testing.T) {
		actual, err := SecureFilename("Über Café.jpg")
		require.NoError(t, err)
		require.Equal(t, "uber_cafe.jpg", actual)
	})

	t.Run("drops characters outside the safe set", func(t *testing.T) {
		actual, err := SecureFilename(` report<2026>?.pdf `)
		require.NoError(t, err)
		require.Equal(t, "report2026.pdf", actual)
	})

	t.Run("strips invisible characters", func(t *testing.T) {
		actual, err := SecureFilename("file\u200B\u200C\u200D\u2060\uFEFFname.txt")
		require.NoError(t, err)
		require.Equal(t, "filename.txt", actual)
	})

	t.Run("prefixes windows device names", func(t *testing.T) {
		actual, err := SecureFilename("CON.txt")
		require.NoError(t, err)
		require.Equal(t, "_con.txt", actual)
	})

	t.Run("rejects names that sanitize to nothing", func(t *testing.T) {
		for _, input := range []string{"", "   ", "..", "日本語", "\u200B\u200C"} {
			_, err := SecureFilename(input)
			require.ErrorIs(t, err, apierror.ErrInvalidInput, input)
		}
	})

	t.Run("truncates long names keeping the extension", func(t *testing.T) {
		actual, err := SecureFilename(strings.Repeat("a", 300) + ".jpeg")
		require.NoError(t, err)
		require.Len(t, actual, 255)
		require.True(t, strings.HasSuffix(actual, ".jpeg"))
	})
}

func TestSecureFolderNamePreservesCase(t *testing.T) {
	t.Parallel()

	actual, err := SecureFolderName("Summer Trip")
	require.NoError(t, err)
	require.Equal(t, "Summer_Trip", actual)

	_, err = SecureFolderName(".thumbs/..")
	require.NoError(t, err)
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "My Photo", DisplayName("My Photo.PNG"))
	require.Equal(t, "scan", DisplayName(`C:\Users\me\scan.tiff`))
	require.Equal(t, "archive.tar", DisplayName("archive.tar.gz"))
	require.Equal(t, "README", DisplayName("README"))
	require.Equal(t, ".env", DisplayName(".env"))
}
