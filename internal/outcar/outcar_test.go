package outcar

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hartree/recalc/internal/param"
	"github.com/hartree/recalc/internal/testutil"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "OUTCAR")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse_CompleteRun(t *testing.T) {
	path := writeLog(t, testutil.BuildOutcar(testutil.OutcarSpec{
		Params: map[string]string{
			"NBANDS": "8",
			"ENCUT":  "520.0",
			"ISPIN":  "2",
			"PREC":   "Accurate",
			"SIGMA":  "0.1",
		},
	}))

	rec, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, param.Int(8), rec.Params["NBANDS"])
	assert.Equal(t, param.Float(520.0), rec.Params["ENCUT"])
	assert.Equal(t, param.Int(2), rec.Params["ISPIN"])
	assert.Equal(t, param.String("Accurate"), rec.Params["PREC"])
	assert.Equal(t, param.Float(0.1), rec.Params["SIGMA"])
	assert.Empty(t, rec.Notices)
}

func TestParse_BandAdjustmentNotice(t *testing.T) {
	path := writeLog(t, testutil.BuildOutcar(testutil.OutcarSpec{
		Params: map[string]string{"NBANDS": "8", "ENCUT": "400"},
		Notice: &testutil.BandNotice{Before: 6, After: 8},
	}))

	rec, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, rec.Notices, 1)
	n := rec.Notices[0]
	assert.Equal(t, CauseParallelBandAdjustment, n.Cause)
	assert.Equal(t, "NBANDS", n.Key)
	assert.Equal(t, int64(6), n.Before)
	assert.Equal(t, int64(8), n.After)
	// The summary block, not the banner, supplies the realized value.
	assert.Equal(t, param.Int(8), rec.Params["NBANDS"])
}

// The exact banner line as the solver prints it, box borders included.
func TestParse_BannerLineVerbatim(t *testing.T) {
	log := " header\n" +
		"|     The number of bands has been changed from the values supplied in        |\n" +
		"|      I found NBANDS    =        6  now  NBANDS  =       8                   |\n" +
		"   NBANDS = 8\n" +
		"                  Voluntary context switches:        2534\n"
	path := writeLog(t, log)

	rec, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, rec.Notices, 1)
	assert.Equal(t, int64(6), rec.Notices[0].Before)
	assert.Equal(t, int64(8), rec.Notices[0].After)
}

func TestParse_IncompleteRun(t *testing.T) {
	path := writeLog(t, testutil.BuildOutcar(testutil.OutcarSpec{
		Params:     map[string]string{"NBANDS": "8"},
		Incomplete: true,
	}))

	_, err := Parse(path)
	assert.ErrorIs(t, err, ErrIncompleteRun)
	assert.False(t, IsParseError(err))
}

func TestParse_MissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "OUTCAR"))
	require.Error(t, err)
	assert.True(t, IsParseError(err))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "cannot open")
}

func TestParse_NoParameterBlock(t *testing.T) {
	path := writeLog(t, " vasp.5.4.4\n some unrelated text\n"+
		"                  Voluntary context switches:        2534\n")

	_, err := Parse(path)
	require.Error(t, err)
	assert.True(t, IsParseError(err))
	assert.Contains(t, err.Error(), "no parameter summary block")
}

func TestParse_MalformedBannerPair(t *testing.T) {
	path := writeLog(t, testutil.BuildOutcar(testutil.OutcarSpec{
		Params: map[string]string{"NBANDS": "8"},
		Notice: &testutil.BandNotice{Malformed: true},
	}))

	_, err := Parse(path)
	require.Error(t, err)
	assert.True(t, IsParseError(err))
	assert.Contains(t, err.Error(), "numeric pair is malformed")
	assert.NotErrorIs(t, err, ErrIncompleteRun)
}

func TestParse_BannerWithoutPayload(t *testing.T) {
	log := "|     The number of bands has been changed from the values supplied in        |\n" +
		"   NBANDS = 8\n" +
		"                  Voluntary context switches:        2534\n"
	path := writeLog(t, log)

	_, err := Parse(path)
	require.Error(t, err)
	assert.True(t, IsParseError(err))
	assert.Contains(t, err.Error(), "without a parseable numeric pair")
}

func TestParse_LastOccurrenceWins(t *testing.T) {
	log := "   NBANDS = 6\n" +
		" some intermediate text\n" +
		"   NBANDS = 8\n" +
		"                  Voluntary context switches:        2534\n"
	path := writeLog(t, log)

	rec, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, param.Int(8), rec.Params["NBANDS"])
}

func TestParse_ScientificNotationFloats(t *testing.T) {
	log := "   EDIFF = 1.0E-06\n" +
		"   SIGMA = 2e-01\n" +
		"                  Voluntary context switches:        2534\n"
	path := writeLog(t, log)

	rec, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, param.Float(1e-6), rec.Params["EDIFF"])
	assert.Equal(t, param.Float(0.2), rec.Params["SIGMA"])
}

func TestParseError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	pe := &ParseError{Path: "x/OUTCAR", Line: 3, Message: "bad", Err: inner}
	assert.ErrorIs(t, pe, inner)
	assert.Equal(t, "parse x/OUTCAR:3: bad", pe.Error())

	noLine := &ParseError{Path: "x/OUTCAR", Message: "bad"}
	assert.Equal(t, "parse x/OUTCAR: bad", noLine.Error())
}

func TestTrimBoxBorder(t *testing.T) {
	assert.Equal(t, "I found NBANDS", trimBoxBorder("|      I found NBANDS   |"))
	assert.Equal(t, "plain line", trimBoxBorder("  plain line  "))
}
