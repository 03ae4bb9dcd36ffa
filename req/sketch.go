/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package req implements the relative-error streaming quantile sketch: for a
// value of true rank r the estimated rank is within +-eps*r, so low ranks
// are tracked almost exactly. Each compactor carries a multi-section buffer
// whose compaction schedule protects the lower half.
//
// Reference: https://arxiv.org/abs/2004.01668 "Relative Error Streaming
// Quantiles"
package req

import (
	"fmt"
	"math"

	"github.com/edoliberty/streaming-quantiles/common"
	"github.com/edoliberty/streaming-quantiles/internal"
)

const (
	// DefaultK roughly corresponds to a 0.01 relative error guarantee
	// with constant probability. K must be even.
	DefaultK = 50

	// initNumSections is the initial upper bound on log2 of the number of
	// compactions, per level.
	initNumSections = 3

	sectionSizeScalar = 0.25
	epsUpperBound     = 0.1
)

// Config carries the tuning knobs of a sketch. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// K is the initial section size of every compactor; it must be even
	// and positive.
	K int
	// Schedule selects how compactors pick the sections to compact.
	Schedule Schedule
	// Lazy stops a compression pass at the first level whose compaction
	// restores the size bound.
	Lazy bool
	// Alternate flips the compaction offset on every other compaction
	// instead of drawing it fresh.
	Alternate bool
	// Never and Always, when set to a non-negative size, switch the
	// compactors to the experimental region layout: the first Never items
	// are exempt from compaction and the last Always items join every
	// compaction. Leave at -1 for the canonical layout.
	Never  int
	Always int
	// InitSections overrides the initial number of sections.
	InitSections int
	// Rand overrides the sketch's random source, for reproducible runs.
	Rand *common.Rand
}

// DefaultConfig returns the canonical configuration for the given k.
func DefaultConfig(k int) Config {
	return Config{
		K:            k,
		Schedule:     ScheduleDeterministic,
		Lazy:         true,
		Alternate:    true,
		Never:        -1,
		Always:       -1,
		InitSections: initNumSections,
	}
}

// Sketch is a mergeable relative-error quantile sketch over a totally
// ordered item type. A Sketch is exclusively owned by its caller and is not
// safe for concurrent use.
type Sketch[C comparable] struct {
	k            int
	schedule     Schedule
	lazy         bool
	alternate    bool
	regions      bool
	never        int
	always       int
	neverGrows   bool
	initSections int
	rng          *common.Rand
	compareFn    common.CompareFn[C]
	compactors   []*compactor[C]
	size         int
	maxSize      int
	n            uint64
}

// New creates a sketch with the canonical configuration for k.
func New[C comparable](k int, compareFn common.CompareFn[C]) (*Sketch[C], error) {
	return NewWithConfig[C](DefaultConfig(k), compareFn)
}

// NewWithConfig creates a sketch from an explicit configuration.
func NewWithConfig[C comparable](cfg Config, compareFn common.CompareFn[C]) (*Sketch[C], error) {
	if cfg.K <= 0 || cfg.K%2 != 0 {
		return nil, fmt.Errorf("k must be positive and even, got %d: %w", cfg.K, common.ErrInvalidParameter)
	}
	switch cfg.Schedule {
	case ScheduleDeterministic, ScheduleRandomized, ScheduleRandomizedLinear:
	default:
		return nil, fmt.Errorf("unknown schedule %q: %w", cfg.Schedule, common.ErrInvalidParameter)
	}
	if cfg.InitSections < 2 {
		return nil, fmt.Errorf("initSections must be at least 2, got %d: %w", cfg.InitSections, common.ErrInvalidParameter)
	}
	if compareFn == nil {
		return nil, fmt.Errorf("no compare function provided: %w", common.ErrInvalidParameter)
	}
	rng := cfg.Rand
	if rng == nil {
		rng = common.NewRand()
	}
	s := &Sketch[C]{
		k:            cfg.K,
		schedule:     cfg.Schedule,
		lazy:         cfg.Lazy,
		alternate:    cfg.Alternate,
		never:        cfg.Never,
		always:       cfg.Always,
		initSections: cfg.InitSections,
		rng:          rng,
		compareFn:    compareFn,
	}
	if cfg.Never >= 0 || cfg.Always >= 0 {
		s.regions = true
		if s.always < 0 {
			s.always = cfg.K
		}
		if s.never < 0 {
			s.never = cfg.K*cfg.InitSections + s.always
			s.neverGrows = true
		}
	}
	s.grow()
	return s, nil
}

// NewFromEpsilon creates a sketch sized for the given relative rank error,
// 0 < eps <= 0.1.
func NewFromEpsilon[C comparable](eps float64, compareFn common.CompareFn[C]) (*Sketch[C], error) {
	if eps <= 0 || eps > epsUpperBound {
		return nil, fmt.Errorf("eps must be in (0, %v], got %v: %w", epsUpperBound, eps, common.ErrInvalidParameter)
	}
	k := 2 * (int(sectionSizeScalar/eps) + 1)
	return New[C](k, compareFn)
}

// K returns the accuracy parameter, the initial section size.
func (s *Sketch[C]) K() int { return s.k }

// N returns the total number of items the sketch has seen.
func (s *Sketch[C]) N() uint64 { return s.n }

// Size returns the number of items currently retained.
func (s *Sketch[C]) Size() int { return s.size }

// MaxSize returns the current retained-item bound, the sum of all level
// capacities.
func (s *Sketch[C]) MaxSize() int { return s.maxSize }

// NumLevels returns the height of the compactor tower.
func (s *Sketch[C]) NumLevels() int { return len(s.compactors) }

// IsEmpty returns true if the sketch has seen no items.
func (s *Sketch[C]) IsEmpty() bool { return s.n == 0 }

// grow appends a compactor at the top of the tower, with the initial section
// layout.
func (s *Sketch[C]) grow() {
	s.compactors = append(s.compactors, &compactor[C]{
		sectionSize:  s.k,
		sectionSizeF: float64(s.k),
		numSections:  s.initSections,
		schedule:     s.schedule,
		alternate:    s.alternate,
		regions:      s.regions,
		never:        s.never,
		always:       s.always,
		neverGrows:   s.neverGrows,
		rng:          s.rng,
		compareFn:    s.compareFn,
	})
	s.updateMaxSize()
}

// updateMaxSize recomputes the size bound; capacities drift as compactors
// double their sections.
func (s *Sketch[C]) updateMaxSize() {
	maxSize := 0
	for _, c := range s.compactors {
		maxSize += c.capacity()
	}
	s.maxSize = maxSize
}

func (s *Sketch[C]) recomputeSize() {
	size := 0
	for _, c := range s.compactors {
		size += c.len()
	}
	s.size = size
}

// Update inserts one item into the sketch.
func (s *Sketch[C]) Update(item C) {
	s.compactors[0].push(item)
	s.size++
	s.n++
	if s.size >= s.maxSize {
		s.compress(s.lazy)
	}
}

// compress walks the tower bottom-up and compacts every level at or over
// capacity. In lazy mode the walk stops as soon as the size bound is
// restored; the eager mode, used after merges, keeps going because many
// levels may overflow at once.
func (s *Sketch[C]) compress(lazy bool) {
	s.updateMaxSize()
	if s.size < s.maxSize {
		return
	}
	for h := 0; h < len(s.compactors); h++ {
		if s.compactors[h].len() >= s.compactors[h].capacity() {
			if h+1 >= len(s.compactors) {
				s.grow()
			}
			s.compactors[h+1].extend(s.compactors[h].compact())
			s.recomputeSize()
			if lazy && s.size < s.maxSize {
				break
			}
		}
	}
	s.updateMaxSize()
}

// MergeInto merges other into s. The argument is read but never mutated; its
// buffers are copied level by level and its schedule states are ORed into
// this sketch's compactors.
func (s *Sketch[C]) MergeInto(other *Sketch[C]) {
	if other == nil || other.IsEmpty() {
		return
	}
	for len(s.compactors) < len(other.compactors) {
		s.grow()
	}
	for h := range other.compactors {
		s.compactors[h].mergeIntoSelf(other.compactors[h])
	}
	s.n += other.n
	s.recomputeSize()
	for s.size >= s.maxSize {
		s.compress(false)
	}
}

// Merge merges the smaller of the two sketches into the larger and returns
// the larger. Neither argument needs to survive independently afterwards.
func Merge[C comparable](one, two *Sketch[C]) *Sketch[C] {
	if one.size >= two.size {
		one.MergeInto(two)
		return one
	}
	two.MergeInto(one)
	return two
}

// Rank estimates the number of stream items <= v.
func (s *Sketch[C]) Rank(v C) int64 {
	r := int64(0)
	for h, c := range s.compactors {
		r += c.rank(v) << uint(h)
	}
	return r
}

// maxRSE is an a priori bound on the relative standard error of a rank
// estimate; it depends on neither the rank nor the stream length.
func (s *Sketch[C]) maxRSE() float64 {
	return math.Sqrt(8/float64(s.initSections)) / float64(s.k)
}

// RankUpperBound returns the estimated rank of v plus numStdDev standard
// deviations. Ranks small enough to still be exact are returned unchanged.
func (s *Sketch[C]) RankUpperBound(v C, numStdDev float64) int64 {
	rank := s.Rank(v)
	if rank <= int64(s.k*s.initSections) {
		return rank
	}
	return int64(math.Ceil((1 + numStdDev*s.maxRSE()) * float64(rank)))
}

// RankLowerBound returns the estimated rank of v minus numStdDev standard
// deviations. Ranks small enough to still be exact are returned unchanged.
func (s *Sketch[C]) RankLowerBound(v C, numStdDev float64) int64 {
	rank := s.Rank(v)
	if rank <= int64(s.k*s.initSections) {
		return rank
	}
	return int64(math.Floor((1 - numStdDev*s.maxRSE()) * float64(rank)))
}

// ItemsWithWeights returns all retained items with their weights, sorted
// ascending by item.
func (s *Sketch[C]) ItemsWithWeights() []common.ItemWeight[C] {
	levels := make([][]C, len(s.compactors))
	for h, c := range s.compactors {
		levels[h] = c.buf
	}
	pairs := common.FlattenWeighted(levels)
	common.SortItemsWithWeights(pairs, s.compareFn)
	return pairs
}

// Ranks returns the retained items, sorted ascending, each paired with the
// cumulative weight up to and including it.
func (s *Sketch[C]) Ranks() []common.ItemWeight[C] {
	pairs := s.ItemsWithWeights()
	common.CumulateWeights(pairs)
	return pairs
}

// CDF returns the retained items, sorted ascending, each paired with the
// fraction of the total stored weight at or below it. The last entry's
// fraction is exactly 1.
func (s *Sketch[C]) CDF() []common.CDFEntry[C] {
	pairs := s.ItemsWithWeights()
	totWeight := common.CumulateWeights(pairs)
	cdf := make([]common.CDFEntry[C], len(pairs))
	for i, p := range pairs {
		cdf[i] = common.CDFEntry[C]{Item: p.Item, Fraction: float64(p.Weight) / float64(totWeight)}
	}
	return cdf
}

// Quantile returns a retained item whose rank approximates q*N, for q in
// [0, 1].
func (s *Sketch[C]) Quantile(q float64) (C, error) {
	var zero C
	if q < 0 || q > 1 {
		return zero, fmt.Errorf("q must be in [0, 1], got %v: %w", q, common.ErrInvalidParameter)
	}
	if s.IsEmpty() {
		return zero, fmt.Errorf("quantile: %w", common.ErrEmptySketch)
	}
	ranks := s.Ranks()
	cumWeights := make([]int64, len(ranks))
	for i, p := range ranks {
		cumWeights[i] = p.Weight
	}
	target := int64(math.Ceil(q * float64(s.n)))
	idx := internal.FindWithInequality(cumWeights, 0, len(cumWeights)-1, target, internal.InequalityGE, common.NaturalOrder[int64]())
	if idx == -1 {
		idx = len(ranks) - 1
	}
	return ranks[idx].Item, nil
}

// MaxStoredItems estimates the number of items a sketch with parameter k
// retains after n stream updates. The bound may be loose for sketches built
// through merges.
func MaxStoredItems(k int, n uint64) int {
	initBufferSize := float64(2 * initNumSections * k)
	result := 0
	m := float64(n)
	for m > initBufferSize {
		numItems := m
		bufferSize := initBufferSize
		secSize := float64(k)
		numSections := initNumSections
		for {
			numItems -= 2 * secSize * math.Pow(2, float64(numSections))
			if numItems <= bufferSize || secSize < minSectionSize {
				break
			}
			secSize /= math.Sqrt2
			numSections *= 2
			bufferSize *= math.Sqrt2
		}
		result += int(bufferSize)
		m = (m - float64(int(bufferSize))) / 2
	}
	return result
}
