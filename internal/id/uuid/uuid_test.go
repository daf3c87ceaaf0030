package uuid

import (
	"strings"
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewID()
	require.NoError(t, err)
	id2, err := gen.NewID()
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	parsed, err := goUUID.Parse(id1)
	require.NoError(t, err)
	require.Equal(t, goUUID.Version(7), parsed.Version())
}

func TestGeneratorPrefix(t *testing.T) {
	t.Parallel()

	id, err := WithPrefix("job_").NewID()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(id, "job_"))

	_, err = goUUID.Parse(strings.TrimPrefix(id, "job_"))
	require.NoError(t, err)
}
