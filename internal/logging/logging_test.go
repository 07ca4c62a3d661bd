package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewVerboseSetsDebugLevel(t *testing.T) {
	log := New(Options{Verbose: true})
	require.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewQuietSetsErrorLevel(t *testing.T) {
	log := New(Options{Quiet: true})
	require.Equal(t, logrus.ErrorLevel, log.GetLevel())
}

func TestNewFallsBackToInfoOnInvalidLevel(t *testing.T) {
	log := New(Options{Level: "not-a-level"})
	require.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewHonoursConfiguredLevel(t *testing.T) {
	log := New(Options{Level: "warn"})
	require.Equal(t, logrus.WarnLevel, log.GetLevel())
}
