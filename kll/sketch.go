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

// Package kll implements the KLL streaming quantile sketch: a tower of
// compactors whose capacities shrink geometrically with depth, giving an
// additive rank error of +-eps*n in O((1/eps)*loglog(eps*n)) space.
//
// Reference: https://arxiv.org/abs/1603.05346v2 "Optimal Quantile
// Approximation in Streams"
package kll

import (
	"fmt"
	"math"

	"github.com/edoliberty/streaming-quantiles/common"
	"github.com/edoliberty/streaming-quantiles/internal"
)

const (
	// DefaultK yields roughly 2% single-sided additive rank error with
	// constant probability.
	DefaultK = 128

	defaultC = 2.0 / 3.0

	minEpsilon = 1e-6
	maxEpsilon = 0.5

	// Single-sided rank error curve eps = rankErrCoef / k^rankErrExp,
	// inverted by NewFromEpsilon.
	rankErrCoef = 2.296
	rankErrExp  = 0.9723
)

// Config carries the tuning knobs of a sketch. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// K controls accuracy: the nominal capacity of the top compactor.
	K int
	// C is the capacity contraction factor per level of depth, in (1/2, 1].
	C float64
	// Lazy stops a compression pass at the first level whose compaction
	// restores the size bound.
	Lazy bool
	// Alternate flips the compaction offset on every other compaction
	// instead of drawing it fresh.
	Alternate bool
	// Rand overrides the sketch's random source, for reproducible runs.
	Rand *common.Rand
}

// DefaultConfig returns the canonical configuration for the given k.
func DefaultConfig(k int) Config {
	return Config{
		K:         k,
		C:         defaultC,
		Lazy:      true,
		Alternate: true,
	}
}

// Sketch is a mergeable additive-error quantile sketch over a totally
// ordered item type. A Sketch is exclusively owned by its caller and is not
// safe for concurrent use.
type Sketch[C comparable] struct {
	k          int
	c          float64
	lazy       bool
	alternate  bool
	rng        *common.Rand
	compareFn  common.CompareFn[C]
	compactors []*compactor[C]
	size       int
	maxSize    int
	n          uint64
}

// New creates a sketch with the canonical configuration for k.
func New[C comparable](k int, compareFn common.CompareFn[C]) (*Sketch[C], error) {
	return NewWithConfig[C](DefaultConfig(k), compareFn)
}

// NewWithConfig creates a sketch from an explicit configuration.
func NewWithConfig[C comparable](cfg Config, compareFn common.CompareFn[C]) (*Sketch[C], error) {
	if cfg.K <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", cfg.K, common.ErrInvalidParameter)
	}
	if cfg.C <= 0.5 || cfg.C > 1 {
		return nil, fmt.Errorf("c must be in (1/2, 1], got %v: %w", cfg.C, common.ErrInvalidParameter)
	}
	if compareFn == nil {
		return nil, fmt.Errorf("no compare function provided: %w", common.ErrInvalidParameter)
	}
	rng := cfg.Rand
	if rng == nil {
		rng = common.NewRand()
	}
	s := &Sketch[C]{
		k:         cfg.K,
		c:         cfg.C,
		lazy:      cfg.Lazy,
		alternate: cfg.Alternate,
		rng:       rng,
		compareFn: compareFn,
	}
	s.grow()
	return s, nil
}

// NewFromEpsilon creates a sketch sized for the given additive rank error,
// eps in [1e-6, 0.5].
func NewFromEpsilon[C comparable](eps float64, compareFn common.CompareFn[C]) (*Sketch[C], error) {
	if eps < minEpsilon || eps > maxEpsilon {
		return nil, fmt.Errorf("eps must be in [%v, %v], got %v: %w", minEpsilon, maxEpsilon, eps, common.ErrInvalidParameter)
	}
	k := int(math.Ceil(math.Pow(rankErrCoef/eps, 1/rankErrExp)))
	return New[C](k, compareFn)
}

// K returns the accuracy parameter.
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

// capacity returns the nominal capacity of the compactor at height h. The
// deepest levels, relative to the current tower height, get the smallest
// buffers.
func (s *Sketch[C]) capacity(h int) int {
	depth := len(s.compactors) - h - 1
	return int(math.Ceil(math.Pow(s.c, float64(depth))*float64(s.k))) + 1
}

// grow appends a compactor at the top of the tower. Every level's capacity
// depends on its depth, so maxSize is recomputed from scratch.
func (s *Sketch[C]) grow() {
	s.compactors = append(s.compactors, newCompactor[C](s.alternate, s.rng, s.compareFn))
	s.updateMaxSize()
}

func (s *Sketch[C]) updateMaxSize() {
	maxSize := 0
	for h := range s.compactors {
		maxSize += s.capacity(h)
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
	if s.size < s.maxSize {
		return
	}
	for h := 0; h < len(s.compactors); h++ {
		if s.compactors[h].len() >= s.capacity(h) {
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
}

// MergeInto merges other into s. The argument is read but never mutated; its
// buffers are copied level by level. After the merge s has seen the union of
// both streams.
func (s *Sketch[C]) MergeInto(other *Sketch[C]) {
	if other == nil || other.IsEmpty() {
		return
	}
	for len(s.compactors) < len(other.compactors) {
		s.grow()
	}
	for h := range other.compactors {
		s.compactors[h].extend(other.compactors[h].buf)
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

// ItemsWithWeights returns all retained items with their weights, sorted
// ascending by item.
func (s *Sketch[C]) ItemsWithWeights() []common.ItemWeight[C] {
	pairs := common.FlattenWeighted(s.levelBuffers())
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
	return quantileFromRanks(ranks, q, s.n), nil
}

// quantileFromRanks binary-searches the cumulative ranks for the first entry
// at or above q*n.
func quantileFromRanks[C comparable](ranks []common.ItemWeight[C], q float64, n uint64) C {
	cumWeights := make([]int64, len(ranks))
	for i, p := range ranks {
		cumWeights[i] = p.Weight
	}
	target := int64(math.Ceil(q * float64(n)))
	idx := internal.FindWithInequality(cumWeights, 0, len(cumWeights)-1, target, internal.InequalityGE, common.NaturalOrder[int64]())
	if idx == -1 {
		idx = len(ranks) - 1
	}
	return ranks[idx].Item
}

func (s *Sketch[C]) levelBuffers() [][]C {
	levels := make([][]C, len(s.compactors))
	for h, c := range s.compactors {
		levels[h] = c.buf
	}
	return levels
}
