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

// Package streamgen produces integer streams in orderings that stress the
// sketches in different ways. It is a collaborator for test harnesses; the
// sketch cores never depend on it. All orderings are deterministic given the
// seed: shuffled orderings sort indices by their murmur3 hash instead of
// drawing from a stateful source.
package streamgen

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"sort"

	"github.com/twmb/murmur3"

	"github.com/edoliberty/streaming-quantiles/common"
)

// Order names a stream ordering.
type Order string

const (
	Sorted          Order = "sorted"
	Reversed        Order = "reversed"
	Zoomin          Order = "zoomin"
	Zoomout         Order = "zoomout"
	Sqrt            Order = "sqrt"
	Random          Order = "random"
	Adv             Order = "adv"
	Clustered       Order = "clustered"
	ClusteredZoomin Order = "clustered-zoomin"
)

const numClusters = 10

// Orders lists every supported ordering.
func Orders() []Order {
	return []Order{Sorted, Reversed, Zoomin, Zoomout, Sqrt, Random, Adv, Clustered, ClusteredZoomin}
}

// ParseOrder validates an ordering name.
func ParseOrder(name string) (Order, error) {
	for _, o := range Orders() {
		if string(o) == name {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown stream order %q: %w", name, common.ErrInvalidParameter)
}

// Make returns n items in the given ordering. Except for Sqrt, the items are
// a permutation of 0..n-1.
func Make(n int, order Order, seed uint64) ([]int, error) {
	if n < 0 {
		return nil, fmt.Errorf("stream length must be nonnegative, got %d: %w", n, common.ErrInvalidParameter)
	}
	switch order {
	case Sorted:
		return makeSorted(n), nil
	case Reversed:
		return makeReversed(n), nil
	case Zoomin:
		return makeZoomin(n), nil
	case Zoomout:
		return makeZoomout(n), nil
	case Sqrt:
		return makeSqrt(n), nil
	case Random:
		return shuffled(makeSorted(n), seed), nil
	case Adv:
		return makeAdv(n), nil
	case Clustered:
		return makeClustered(n, seed, false), nil
	case ClusteredZoomin:
		return makeClustered(n, seed, true), nil
	default:
		return nil, fmt.Errorf("unknown stream order %q: %w", order, common.ErrInvalidParameter)
	}
}

func makeSorted(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func makeReversed(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = n - 1 - i
	}
	return out
}

// makeZoomin interleaves the smallest remaining item with the largest.
func makeZoomin(n int) []int {
	out := make([]int, 0, n)
	lo, hi := 0, n-1
	for lo <= hi {
		out = append(out, lo)
		lo++
		if lo <= hi {
			out = append(out, hi)
			hi--
		}
	}
	return out
}

// makeZoomout walks outward from the middle.
func makeZoomout(n int) []int {
	if n == 0 {
		return []int{}
	}
	out := make([]int, 0, n)
	mid := n / 2
	out = append(out, mid)
	for step := 1; len(out) < n; step++ {
		if mid+step < n {
			out = append(out, mid+step)
		}
		if len(out) < n && mid-step >= 0 {
			out = append(out, mid-step)
		}
	}
	return out
}

// makeSqrt emits overlapping arithmetic ramps with growing skips, covering
// roughly n items around the triangular numbers.
func makeSqrt(n int) []int {
	out := make([]int, 0, n)
	t := int(math.Sqrt(float64(2 * n)))
	initialItem := 0
	initialSkip := 1
	for i := 0; i < t; i++ {
		item := initialItem
		skip := initialSkip
		for j := 0; j < t-i; j++ {
			out = append(out, item)
			item += skip
			skip++
		}
		initialSkip++
		initialItem += initialSkip
	}
	return out
}

// makeAdv emits the bit-reversal permutation, an adversarial ordering that
// revisits every scale on every prefix.
func makeAdv(n int) []int {
	if n == 0 {
		return []int{}
	}
	width := bits.Len(uint(n - 1))
	out := make([]int, 0, n)
	for i := 0; i < 1<<uint(width); i++ {
		v := int(bits.Reverse(uint(i)) >> uint(bits.UintSize-width))
		if v < n {
			out = append(out, v)
		}
	}
	return out
}

// makeClustered splits 0..n-1 into contiguous clusters and emits them one at
// a time, shuffled within each cluster. The zoomin variant visits clusters
// from the outside in.
func makeClustered(n int, seed uint64, zoomin bool) []int {
	clusterSize := (n + numClusters - 1) / numClusters
	if clusterSize == 0 {
		return []int{}
	}
	clusterOrder := make([]int, 0, numClusters)
	if zoomin {
		lo, hi := 0, numClusters-1
		for lo <= hi {
			clusterOrder = append(clusterOrder, lo)
			lo++
			if lo <= hi {
				clusterOrder = append(clusterOrder, hi)
				hi--
			}
		}
	} else {
		for c := 0; c < numClusters; c++ {
			clusterOrder = append(clusterOrder, c)
		}
	}
	out := make([]int, 0, n)
	for _, c := range clusterOrder {
		lo := c * clusterSize
		hi := lo + clusterSize
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		cluster := make([]int, 0, hi-lo)
		for v := lo; v < hi; v++ {
			cluster = append(cluster, v)
		}
		out = append(out, shuffled(cluster, seed+uint64(c))...)
	}
	return out
}

// shuffled permutes items in place by sorting them on their murmur3 hash
// keyed by seed.
func shuffled(items []int, seed uint64) []int {
	var scratch [8]byte
	type keyedItem struct {
		key uint64
		v   int
	}
	keyed := make([]keyedItem, len(items))
	for i, v := range items {
		binary.LittleEndian.PutUint64(scratch[:], uint64(v))
		keyed[i] = keyedItem{key: murmur3.SeedSum64(seed, scratch[:]), v: v}
	}
	sort.Slice(keyed, func(i, j int) bool {
		if keyed[i].key != keyed[j].key {
			return keyed[i].key < keyed[j].key
		}
		return keyed[i].v < keyed[j].v
	})
	for i := range keyed {
		items[i] = keyed[i].v
	}
	return items
}
