package coupon

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"
)

// CodeSetConfig sizes and constrains an offline campaign code set.
type CodeSetConfig struct {
	// Capacity is the expected number of codes per file.
	Capacity uint
	// FPR is the acceptable false-positive rate per filter.
	FPR float64
	// Quorum is how many files a code must appear in to count as valid.
	// Zero means: 1 for a single file, 2 otherwise.
	Quorum int
	// MinLen and MaxLen bound accepted code lengths; out-of-range lines
	// are skipped during load and rejected during lookup.
	MinLen, MaxLen int
}

func (c *CodeSetConfig) setDefaults(files int) {
	if c.Capacity == 0 {
		c.Capacity = 1_000_000
	}
	if c.FPR == 0 {
		c.FPR = 0.001
	}
	if c.Quorum == 0 {
		c.Quorum = 2
		if files < 2 {
			c.Quorum = 1
		}
	}
	if c.MinLen == 0 {
		c.MinLen = 8
	}
	if c.MaxLen == 0 {
		c.MaxLen = 10
	}
}

// CodeSet is a read-only membership structure over bulk promo code files.
// Each file is streamed into its own Bloom filter; a code is considered
// present when at least Quorum filters report it. Membership is
// probabilistic: a small share of unknown codes (bounded by FPR) will pass,
// which is an accepted trade-off for campaign codes.
type CodeSet struct {
	filters []*bloom.BloomFilter
	cfg     CodeSetConfig
}

// LoadCodeSet streams the given files (gzip-compressed when named *.gz,
// plain text otherwise, one code per line) into Bloom filters, one file at
// a time per goroutine.
func LoadCodeSet(ctx context.Context, paths []string, cfg CodeSetConfig) (*CodeSet, error) {
	if len(paths) == 0 {
		return nil, errors.New("no code files given")
	}
	cfg.setDefaults(len(paths))

	filters := make([]*bloom.BloomFilter, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(cfg.Capacity, cfg.FPR)
			err := streamCodes(ctx, path, func(code string) {
				if len(code) >= cfg.MinLen && len(code) <= cfg.MaxLen {
					filter.AddString(strings.ToUpper(code))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "load %s", path)
			}
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &CodeSet{filters: filters, cfg: cfg}, nil
}

// Contains reports whether the code appears in at least Quorum files.
// The code must already be upper-case; TableValidator normalizes first.
func (s *CodeSet) Contains(code string) bool {
	if len(code) < s.cfg.MinLen || len(code) > s.cfg.MaxLen {
		return false
	}
	hits := 0
	for _, f := range s.filters {
		if f.TestString(code) {
			hits++
			if hits >= s.cfg.Quorum {
				return true
			}
		}
	}
	return false
}

// streamCodes opens a code file and calls fn for each non-empty line.
func streamCodes(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrap(err, "create gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			fn(line)
		}
	}
	return errors.Wrap(scanner.Err(), "scan")
}
