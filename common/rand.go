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

package common

import "math/rand"

// Rand is the single source of randomness for a sketch. Every compactor of a
// sketch draws from the sketch's one Rand; merging two sketches never ties
// their sources together. A nil Rand is never valid inside a sketch, so the
// constructors substitute NewRand when the caller does not provide one.
type Rand struct {
	src *rand.Rand
}

// NewRand returns a Rand seeded from the process-global source.
func NewRand() *Rand {
	return NewSeededRand(rand.Int63())
}

// NewSeededRand returns a Rand with an explicit seed for reproducible runs.
func NewSeededRand(seed int64) *Rand {
	return &Rand{src: rand.New(rand.NewSource(seed))}
}

// Coin returns 0 or 1, each with probability one half.
func (r *Rand) Coin() int {
	return int(r.src.Int63() & 1)
}

// UniformInt returns an integer drawn uniformly from the closed interval
// [lo, hi].
func (r *Rand) UniformInt(lo, hi int) int {
	return lo + r.src.Intn(hi-lo+1)
}

// Geometric returns the number of consecutive heads before the first tail,
// capped at max.
func (r *Rand) Geometric(max int) int {
	n := 0
	for n < max && r.Coin() == 1 {
		n++
	}
	return n
}

// Shuffle randomizes the order of n elements through the swap function.
func (r *Rand) Shuffle(n int, swap func(i, j int)) {
	r.src.Shuffle(n, swap)
}
