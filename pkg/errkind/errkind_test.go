package errkind

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapNilIsNil(t *testing.T) {
	require.NoError(t, Wrap(Remote, nil, "fetch"))
}

func TestKindOfThroughWrapping(t *testing.T) {
	base := errors.New("connection refused")
	err := Wrap(Remote, base, "fetch transactions")
	outer := fmt.Errorf("pull: %w", err)
	require.Equal(t, Remote, KindOf(outer))
	require.Equal(t, 3, KindOf(outer).ExitCode())
}

func TestExitCodes(t *testing.T) {
	require.Equal(t, 2, UserInput.ExitCode())
	require.Equal(t, 2, Validation.ExitCode())
	require.Equal(t, 3, Remote.ExitCode())
	require.Equal(t, 4, Local.ExitCode())
	require.Equal(t, 1, Unknown.ExitCode())
}
