package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadFillsGoVersion(t *testing.T) {
	info := Read()
	require.NotEmpty(t, info.GoVersion)
}

func TestStringIncludesVersion(t *testing.T) {
	info := Info{Version: "1.2.3", Commit: "abcdef", BuildTime: "now", GoVersion: "go1.24"}
	s := info.String()
	require.Contains(t, s, "1.2.3")
	require.Contains(t, s, "abcdef")
}
