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

import "sort"

// ItemWeight pairs a retained item with its weight. The weight of an item
// held at height h is 2^h; after CumulateWeights the field carries the
// running cumulative weight instead.
type ItemWeight[C comparable] struct {
	Item   C
	Weight int64
}

// CDFEntry pairs an item with the fraction of the total stored weight at or
// below it.
type CDFEntry[C comparable] struct {
	Item     C
	Fraction float64
}

// FlattenWeighted turns per-height buffers into (item, 2^h) pairs. Height is
// the buffer's index in levels.
func FlattenWeighted[C comparable](levels [][]C) []ItemWeight[C] {
	numItems := 0
	for _, buf := range levels {
		numItems += len(buf)
	}
	pairs := make([]ItemWeight[C], 0, numItems)
	for h, buf := range levels {
		w := int64(1) << uint(h)
		for _, item := range buf {
			pairs = append(pairs, ItemWeight[C]{Item: item, Weight: w})
		}
	}
	return pairs
}

// SortItemsWithWeights sorts the pairs ascending by item. The sort is stable
// so that equal items keep a deterministic adjacency order.
func SortItemsWithWeights[C comparable](pairs []ItemWeight[C], compareFn CompareFn[C]) {
	sort.SliceStable(pairs, func(i, j int) bool {
		return compareFn(pairs[i].Item, pairs[j].Item)
	})
}

// CumulateWeights replaces each pair's weight with the running total and
// returns the grand total. The pairs must already be sorted by item.
func CumulateWeights[C comparable](pairs []ItemWeight[C]) int64 {
	subtotal := int64(0)
	for i := range pairs {
		subtotal += pairs[i].Weight
		pairs[i].Weight = subtotal
	}
	return subtotal
}
