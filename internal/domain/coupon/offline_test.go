package coupon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGzCodes(t *testing.T, dir, name string, codes ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(codes, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestLoadCodeSet_QuorumAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	// SUMMER25 appears in both files, LONESOME1 in only one.
	f1 := writeGzCodes(t, dir, "campaign1.gz", "SUMMER25", "LONESOME1")
	f2 := writeGzCodes(t, dir, "campaign2.gz", "SUMMER25", "OTHERCODE")

	set, err := LoadCodeSet(ctx, []string{f1, f2}, CodeSetConfig{Capacity: 1000})
	require.NoError(t, err)

	assert.True(t, set.Contains("SUMMER25"))
	assert.False(t, set.Contains("LONESOME1"))
	assert.False(t, set.Contains("NEVERSEEN"))
}

func TestLoadCodeSet_SingleFile(t *testing.T) {
	dir := t.TempDir()
	f1 := writeGzCodes(t, dir, "only.gz", "SUMMER25")

	set, err := LoadCodeSet(context.Background(), []string{f1}, CodeSetConfig{Capacity: 100})
	require.NoError(t, err)

	assert.True(t, set.Contains("SUMMER25"))
}

func TestLoadCodeSet_SkipsOutOfRangeCodes(t *testing.T) {
	dir := t.TempDir()
	f1 := writeGzCodes(t, dir, "mixed.gz", "OK", "GOODCODE", "WAYTOOLONGFORACODE")

	set, err := LoadCodeSet(context.Background(), []string{f1}, CodeSetConfig{Capacity: 100})
	require.NoError(t, err)

	assert.True(t, set.Contains("GOODCODE"))
	assert.False(t, set.Contains("OK"))
	assert.False(t, set.Contains("WAYTOOLONGFORACODE"))
}

func TestLoadCodeSet_PlainTextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plaintxt\n\n"), 0o644))

	set, err := LoadCodeSet(context.Background(), []string{path}, CodeSetConfig{Capacity: 100})
	require.NoError(t, err)

	// Codes are normalized to upper case at load time.
	assert.True(t, set.Contains("PLAINTXT"))
}

func TestLoadCodeSet_NoFiles(t *testing.T) {
	_, err := LoadCodeSet(context.Background(), nil, CodeSetConfig{})
	require.Error(t, err)
}

func TestTableValidator_OfflineCampaignCodes(t *testing.T) {
	dir := t.TempDir()
	f1 := writeGzCodes(t, dir, "c1.gz", "FLASH881", "KILLA10X")

	set, err := LoadCodeSet(context.Background(), []string{f1}, CodeSetConfig{Capacity: 100})
	require.NoError(t, err)

	campaign := Coupon{Kind: KindPercentage, Value: decimal.NewFromInt(10), Description: "Campaign code: 10% off"}
	v := NewTableValidator(DefaultTable()).WithOfflineCodes(set, campaign)

	c, err := v.Validate(context.Background(), "flash881")
	require.NoError(t, err)
	assert.Equal(t, "FLASH881", c.Code)
	assert.Equal(t, KindPercentage, c.Kind)

	// Static table still wins over campaign codes.
	c, err = v.Validate(context.Background(), "KILLA10")
	require.NoError(t, err)
	assert.Equal(t, "10% off your order", c.Description)

	_, err = v.Validate(context.Background(), "ABSENT99")
	require.ErrorIs(t, err, ErrInvalidCoupon)
}
