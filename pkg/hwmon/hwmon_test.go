package hwmon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeHwmon(t *testing.T, root, dir, name string) string {
	path := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(path, 0755))
	if name != "" {
		require.NoError(t, os.WriteFile(filepath.Join(path, "name"), []byte(name+"\n"), 0644))
	}
	return path
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	makeHwmon(t, root, "hwmon0", "acpitz")
	makeHwmon(t, root, "hwmon1", "")
	nct := makeHwmon(t, root, "hwmon2", "nct6798")
	makeHwmon(t, root, "hwmon3", "nct6798")

	dir, err := Find(root, "nct67")
	require.NoError(t, err)
	require.Equal(t, nct, dir)

	_, err = Find(root, "it8688")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = Find(filepath.Join(root, "missing"), "nct67")
	require.Error(t, err)
}

func TestFan(t *testing.T) {
	dir := makeHwmon(t, t.TempDir(), "hwmon2", "nct6798")
	for _, fn := range []string{"pwm2_enable", "pwm2"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fn), []byte("0\n"), 0644))
	}
	fan := NewFan(dir, "pwm2_enable", "1", "pwm2")
	require.NoError(t, fan.Init())
	content, err := os.ReadFile(fan.ControlPath)
	require.NoError(t, err)
	require.Equal(t, "1", string(content))
	content, err = os.ReadFile(fan.PWMPath)
	require.NoError(t, err)
	require.Equal(t, "255", string(content))

	require.NoError(t, fan.SetDuty(7))
	content, err = os.ReadFile(fan.PWMPath)
	require.NoError(t, err)
	require.Equal(t, "7", string(content))

	missing := NewFan(dir, "pwm9_enable", "1", "pwm9")
	require.Error(t, missing.Init())
	require.Error(t, missing.SetDuty(10))
}
