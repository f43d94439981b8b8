package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentID(t *testing.T) {
	t.Run("strips extension and lowercases", func(t *testing.T) {
		assert.Equal(t, "foo", DocumentID("Foo.PDF"))
		assert.Equal(t, "foo", DocumentID("foo.pdf"))
	})

	t.Run("strips only the final extension", func(t *testing.T) {
		assert.Equal(t, "my.file.name", DocumentID("my.file.name.txt"))
	})

	t.Run("handles a leading directory", func(t *testing.T) {
		assert.Equal(t, "readme", DocumentID("/some/dir/README.pdf"))
	})

	t.Run("handles no extension", func(t *testing.T) {
		assert.Equal(t, "readme", DocumentID("README"))
	})
}
