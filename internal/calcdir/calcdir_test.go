package calcdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hartree/recalc/internal/param"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestIsCalcDir(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, IsCalcDir(dir))

	write(t, dir, IncarName, "NBANDS = 6\n")
	write(t, dir, KpointsName, "Automatic mesh\n")
	assert.False(t, IsCalcDir(dir))

	write(t, dir, PotcarName, "PAW_PBE Cu\n")
	assert.True(t, IsCalcDir(dir))
}

func TestDir_HasOutput(t *testing.T) {
	dir := t.TempDir()
	d := New(dir)
	assert.False(t, d.HasOutput())

	write(t, dir, OutcarName, "log\n")
	assert.True(t, d.HasOutput())
}

func TestDir_JobID(t *testing.T) {
	dir := t.TempDir()
	d := New(dir)

	id, err := d.JobID()
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.False(t, d.HasJobID())

	write(t, dir, JobIDName, "12345.sched0\n")
	assert.True(t, d.HasJobID())
	id, err = d.JobID()
	require.NoError(t, err)
	assert.Equal(t, "12345", id)
}

func TestDir_IsRunning(t *testing.T) {
	dir := t.TempDir()
	d := New(dir)
	assert.False(t, d.IsRunning())

	write(t, dir, RunningName, "")
	assert.True(t, d.IsRunning())
}

func TestReadINCAR(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, IncarName, `
# static run
SYSTEM = fcc Cu
encut = 520.0
NBANDS = 6 ! band count
LWAVE = .FALSE.
ISPIN = 1; SIGMA = 0.1
MAGMOM = 0 0 5
`)
	set, err := New(dir).ReadINCAR()
	require.NoError(t, err)

	assert.Equal(t, param.Vector{param.String("fcc"), param.String("Cu")}, set["SYSTEM"])
	assert.Equal(t, param.Float(520.0), set["ENCUT"])
	assert.Equal(t, param.Int(6), set["NBANDS"])
	assert.Equal(t, param.Bool(false), set["LWAVE"])
	assert.Equal(t, param.Int(1), set["ISPIN"])
	assert.Equal(t, param.Float(0.1), set["SIGMA"])
	assert.Equal(t, param.Vector{param.Int(0), param.Int(0), param.Int(5)}, set["MAGMOM"])
}

func TestReadINCAR_Absent(t *testing.T) {
	set, err := New(t.TempDir()).ReadINCAR()
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestReadINCAR_NoAssignment(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, IncarName, "NBANDS 6\n")

	_, err := New(dir).ReadINCAR()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no assignment")
}

func TestParseIncarToken(t *testing.T) {
	tests := []struct {
		tok  string
		want param.Value
	}{
		{".TRUE.", param.Bool(true)},
		{"T", param.Bool(true)},
		{".FALSE.", param.Bool(false)},
		{".f.", param.Bool(false)},
		{"6", param.Int(6)},
		{"-1", param.Int(-1)},
		{"520.0", param.Float(520.0)},
		{"1E-06", param.Float(1e-6)},
		{"Accurate", param.String("Accurate")},
	}
	for _, tt := range tests {
		t.Run(tt.tok, func(t *testing.T) {
			assert.Equal(t, tt.want, parseIncarToken(tt.tok))
		})
	}
}
