// Package classify assigns barometer readings to vehicle labels.
package classify

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/pbaille/barotrace/internal/bucket"
	"github.com/pbaille/barotrace/internal/domain"
	"github.com/pbaille/barotrace/internal/labels"
	"github.com/pbaille/barotrace/internal/table"
	"go.uber.org/zap"
)

// Baro.txt columns
const (
	timestampCol = 1
	valueCol     = 3
)

// DefaultYieldEvery is how many readings are processed between scheduler yields
const DefaultYieldEvery = 500

// Classifier streams readings and buckets them by resolved label
type Classifier struct {
	resolver   *labels.Resolver
	logger     *zap.Logger
	YieldEvery int
}

// New creates a Classifier backed by resolver
func New(resolver *labels.Resolver, logger *zap.Logger) *Classifier {
	return &Classifier{
		resolver:   resolver,
		logger:     logger,
		YieldEvery: DefaultYieldEvery,
	}
}

// ParseReading decodes a Baro.txt row
func ParseReading(row []string) (domain.Reading, error) {
	if len(row) <= valueCol {
		return domain.Reading{}, fmt.Errorf("%w: %d fields, want at least %d", table.ErrMalformedRow, len(row), valueCol+1)
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(row[timestampCol]), 10, 64)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("%w: timestamp: %v", table.ErrMalformedRow, err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[valueCol]), 64)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("%w: value: %v", table.ErrMalformedRow, err)
	}
	return domain.Reading{Timestamp: ts, Value: v}, nil
}

// ClassifyFile reads the barometer file at path and returns the readings that
// resolved to a label, bucketed by label and date. Unresolved readings are
// dropped.
func (c *Classifier) ClassifyFile(ctx context.Context, path string) (*bucket.Set, error) {
	set := bucket.NewSet()
	yieldEvery := c.YieldEvery
	if yieldEvery <= 0 {
		yieldEvery = DefaultYieldEvery
	}

	var seen, kept int
	err := table.Each(path, table.Comma, func(line int, row []string) error {
		seen++
		if seen%yieldEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			runtime.Gosched()
		}

		r, err := ParseReading(row)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		label, ok := c.resolver.Resolve(r.Timestamp)
		if !ok {
			return nil
		}
		// Keep the values as they were logged.
		set.Append(label, c.resolver.DateKey(r.Timestamp), strings.TrimSpace(row[timestampCol])+","+strings.TrimSpace(row[valueCol]))
		kept++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", path, err)
	}

	c.logger.Info("parsed barometer file",
		zap.String("path", path),
		zap.Int("rows", seen),
		zap.Int("labelled", kept),
	)
	return set, nil
}
