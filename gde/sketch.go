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

// Package gde implements a Gaussian density estimator: the compactor tower
// generalized from ordered scalars to vectors in R^d. Compaction assigns
// self-balancing signs to the buffered vectors and keeps the nonnegative
// half, producing a weighted coreset whose Gaussian-kernel density answers
// are unbiased.
package gde

import (
	"fmt"
	"math"

	"github.com/edoliberty/streaming-quantiles/common"
)

// Sketch is a mergeable kernel-density sketch over fixed-dimension real
// vectors. A Sketch is exclusively owned by its caller and is not safe for
// concurrent use.
type Sketch struct {
	k          int
	d          int
	rng        *common.Rand
	compactors [][][]float64
	size       int
	maxSize    int
	n          uint64
}

// WeightedVector is one coreset entry: a retained vector and its share of
// the density mass.
type WeightedVector struct {
	Weight float64
	Vector []float64
}

// New creates a sketch holding up to k vectors per level, for vectors of
// dimension d.
func New(k, d int) (*Sketch, error) {
	return NewWithRand(k, d, nil)
}

// NewWithRand creates a sketch with an explicit random source, for
// reproducible runs.
func NewWithRand(k, d int, rng *common.Rand) (*Sketch, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, common.ErrInvalidParameter)
	}
	if d <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d: %w", d, common.ErrInvalidParameter)
	}
	if rng == nil {
		rng = common.NewRand()
	}
	s := &Sketch{
		k:   k,
		d:   d,
		rng: rng,
	}
	s.grow()
	return s, nil
}

// K returns the per-level capacity.
func (s *Sketch) K() int { return s.k }

// D returns the vector dimension.
func (s *Sketch) D() int { return s.d }

// N returns the total number of vectors the sketch has seen.
func (s *Sketch) N() uint64 { return s.n }

// Size returns the number of vectors currently retained.
func (s *Sketch) Size() int { return s.size }

// MaxSize returns the current retained-vector bound.
func (s *Sketch) MaxSize() int { return s.maxSize }

// NumLevels returns the height of the compactor tower.
func (s *Sketch) NumLevels() int { return len(s.compactors) }

// IsEmpty returns true if the sketch has seen no vectors.
func (s *Sketch) IsEmpty() bool { return s.n == 0 }

func (s *Sketch) grow() {
	s.compactors = append(s.compactors, nil)
	s.maxSize = len(s.compactors) * s.k
}

func (s *Sketch) recomputeSize() {
	size := 0
	for _, buf := range s.compactors {
		size += len(buf)
	}
	s.size = size
}

// Kernel evaluates the Gaussian kernel exp(-|u-v|^2). Both vectors must have
// the sketch's dimension.
func Kernel(u, v []float64) float64 {
	sq := 0.0
	for i := range u {
		diff := u[i] - v[i]
		sq += diff * diff
	}
	return math.Exp(-sq)
}

// Update inserts one vector into the sketch. The vector is copied.
func (s *Sketch) Update(vector []float64) error {
	if len(vector) != s.d {
		return fmt.Errorf("update with vector of dimension %d, want %d: %w", len(vector), s.d, common.ErrDimensionMismatch)
	}
	v := make([]float64, s.d)
	copy(v, vector)
	s.compactors[0] = append(s.compactors[0], v)
	s.size++
	s.n++
	if s.size >= s.maxSize {
		s.compress(true)
	}
	return nil
}

// compress walks the tower bottom-up, compacting every level at or over
// capacity. Appending a height raises maxSize by k, so the walk always
// restores the size bound.
func (s *Sketch) compress(lazy bool) {
	for h := 0; h < len(s.compactors); h++ {
		if len(s.compactors[h]) >= s.k {
			if h+1 >= len(s.compactors) {
				s.grow()
			}
			s.compactors[h+1] = append(s.compactors[h+1], s.compact(h)...)
			s.recomputeSize()
			if lazy && s.size < s.maxSize {
				break
			}
		}
	}
}

// compact shuffles the level's buffer, assigns each vector the sign that
// pushes the signed kernel sum toward zero, and emits the nonnegative half.
// The first sign is a coin flip; ties keep the vector.
func (s *Sketch) compact(h int) [][]float64 {
	buf := s.compactors[h]
	s.rng.Shuffle(len(buf), func(i, j int) {
		buf[i], buf[j] = buf[j], buf[i]
	})
	signs := make([]float64, len(buf))
	if len(buf) > 0 {
		if s.rng.Coin() == 1 {
			signs[0] = 1
		} else {
			signs[0] = -1
		}
	}
	out := make([][]float64, 0, (len(buf)+1)/2)
	if len(buf) > 0 && signs[0] >= 0 {
		out = append(out, buf[0])
	}
	for i := 1; i < len(buf); i++ {
		delta := 0.0
		for j := 0; j < i; j++ {
			delta += signs[j] * Kernel(buf[i], buf[j])
		}
		if delta > 0 {
			signs[i] = -1
		} else {
			signs[i] = 1
		}
		if signs[i] >= 0 {
			out = append(out, buf[i])
		}
	}
	s.compactors[h] = buf[:0]
	return out
}

// MergeInto merges other into s. Both sketches must have the same dimension.
// The argument is read but never mutated; its vectors are copied.
func (s *Sketch) MergeInto(other *Sketch) error {
	if other == nil {
		return nil
	}
	if other.d != s.d {
		return fmt.Errorf("merge of dimension %d into %d: %w", other.d, s.d, common.ErrDimensionMismatch)
	}
	if other.IsEmpty() {
		return nil
	}
	for len(s.compactors) < len(other.compactors) {
		s.grow()
	}
	for h := range other.compactors {
		for _, v := range other.compactors[h] {
			cp := make([]float64, s.d)
			copy(cp, v)
			s.compactors[h] = append(s.compactors[h], cp)
		}
	}
	s.n += other.n
	s.recomputeSize()
	for s.size >= s.maxSize {
		s.compress(false)
	}
	return nil
}

// Merge merges the smaller of the two sketches into the larger and returns
// the larger. Neither argument needs to survive independently afterwards.
func Merge(one, two *Sketch) (*Sketch, error) {
	if one.size >= two.size {
		if err := one.MergeInto(two); err != nil {
			return nil, err
		}
		return one, nil
	}
	if err := two.MergeInto(one); err != nil {
		return nil, err
	}
	return two, nil
}

// Query estimates the kernel density at q: the weighted sum of kernel values
// against every retained vector, normalized by the stream count.
func (s *Sketch) Query(q []float64) (float64, error) {
	if len(q) != s.d {
		return 0, fmt.Errorf("query with vector of dimension %d, want %d: %w", len(q), s.d, common.ErrDimensionMismatch)
	}
	if s.IsEmpty() {
		return 0, fmt.Errorf("query: %w", common.ErrEmptySketch)
	}
	density := 0.0
	for h, buf := range s.compactors {
		w := float64(int64(1) << uint(h))
		for _, v := range buf {
			density += w * Kernel(v, q)
		}
	}
	return density / float64(s.n), nil
}

// Coreset returns the retained vectors with their normalized weights. The
// weights sum to roughly one.
func (s *Sketch) Coreset() []WeightedVector {
	out := make([]WeightedVector, 0, s.size)
	for h, buf := range s.compactors {
		w := float64(int64(1)<<uint(h)) / float64(s.n)
		for _, v := range buf {
			cp := make([]float64, s.d)
			copy(cp, v)
			out = append(out, WeightedVector{Weight: w, Vector: cp})
		}
	}
	return out
}
