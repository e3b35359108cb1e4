package zetra

import (
	"testing"

	"github.com/blang/semver/v4"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	assert := require.New(t)

	assert.NoError(Version.Validate())
	// a zero version means MustParse was fed garbage during a bump
	assert.Equal(1, Version.Compare(semver.MustParse("0.0.0")))
}
