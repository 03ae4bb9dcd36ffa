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

package streamgen

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edoliberty/streaming-quantiles/common"
)

func TestMake_PermutationOrders(t *testing.T) {
	const n = 1000
	for _, order := range []Order{Sorted, Reversed, Zoomin, Zoomout, Random, Adv, Clustered, ClusteredZoomin} {
		stream, err := Make(n, order, 7)
		require.NoError(t, err, "order=%s", order)
		require.Len(t, stream, n, "order=%s", order)
		sorted := append([]int(nil), stream...)
		sort.Ints(sorted)
		for i, v := range sorted {
			require.Equal(t, i, v, "order=%s", order)
		}
	}
}

func TestMake_Sorted(t *testing.T) {
	stream, err := Make(5, Sorted, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, stream)
}

func TestMake_Reversed(t *testing.T) {
	stream, err := Make(5, Reversed, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 2, 1, 0}, stream)
}

func TestMake_Zoomin(t *testing.T) {
	stream, err := Make(6, Zoomin, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5, 1, 4, 2, 3}, stream)
}

func TestMake_SqrtCoversRamps(t *testing.T) {
	stream, err := Make(100, Sqrt, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, stream)
	// The first ramp starts at zero with increasing skips.
	assert.Equal(t, 0, stream[0])
	assert.Equal(t, 1, stream[1])
	assert.Equal(t, 3, stream[2])
	assert.Equal(t, 6, stream[3])
}

func TestMake_RandomDeterministic(t *testing.T) {
	a, err := Make(500, Random, 42)
	require.NoError(t, err)
	b, err := Make(500, Random, 42)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Make(500, Random, 43)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	// A murmur3-keyed permutation actually moves things around.
	moved := 0
	for i, v := range a {
		if i != v {
			moved++
		}
	}
	assert.Greater(t, moved, 400)
}

func TestMake_ClusteredGroupsValues(t *testing.T) {
	const n = 1000
	stream, err := Make(n, Clustered, 3)
	require.NoError(t, err)
	// Each run of n/10 emitted items spans exactly one value decade.
	clusterSize := n / numClusters
	for c := 0; c < numClusters; c++ {
		lo := c * clusterSize
		for _, v := range stream[lo : lo+clusterSize] {
			assert.Equal(t, c, v/clusterSize)
		}
	}
}

func TestMake_EdgeCases(t *testing.T) {
	_, err := Make(-1, Sorted, 0)
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
	_, err = Make(10, Order("bogus"), 0)
	assert.ErrorIs(t, err, common.ErrInvalidParameter)

	for _, order := range Orders() {
		stream, err := Make(0, order, 0)
		require.NoError(t, err, "order=%s", order)
		assert.Empty(t, stream, "order=%s", order)
	}
	for _, order := range Orders() {
		if order == Sqrt {
			continue
		}
		stream, err := Make(1, order, 0)
		require.NoError(t, err, "order=%s", order)
		assert.Equal(t, []int{0}, stream, "order=%s", order)
	}
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("zoomin")
	require.NoError(t, err)
	assert.Equal(t, Zoomin, o)
	_, err = ParseOrder("nope")
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
}
