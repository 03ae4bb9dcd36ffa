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

package gde

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edoliberty/streaming-quantiles/common"
)

// gaussianVector returns a deterministic pseudo-normal vector for test
// streams.
func gaussianVector(rng *common.Rand, d int) []float64 {
	v := make([]float64, d)
	for i := range v {
		// Sum of uniforms, shifted; close enough to normal for sizing
		// tests.
		sum := 0.0
		for j := 0; j < 12; j++ {
			sum += float64(rng.UniformInt(0, 1000)) / 1000.0
		}
		v[i] = sum - 6
	}
	return v
}

func TestSketch_InvalidParameters(t *testing.T) {
	_, err := New(0, 3)
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
	_, err = New(10, 0)
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
	_, err = New(-1, -1)
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
}

func TestSketch_SingleUpdate(t *testing.T) {
	s, err := New(10, 3)
	require.NoError(t, err)
	require.NoError(t, s.Update([]float64{0, 0, 0}))

	q, err := s.Query([]float64{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, q)

	q, err = s.Query([]float64{0.01, 0.01, 0.01})
	require.NoError(t, err)
	assert.Greater(t, q, 0.95)

	q, err = s.Query([]float64{1, 1, 1})
	require.NoError(t, err)
	assert.Less(t, q, 0.05)
}

func TestSketch_DimensionMismatch(t *testing.T) {
	s, err := New(10, 3)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Update([]float64{1, 2}), common.ErrDimensionMismatch)
	assert.ErrorIs(t, s.Update([]float64{1, 2, 3, 4}), common.ErrDimensionMismatch)
	_, err = s.Query([]float64{1})
	assert.ErrorIs(t, err, common.ErrDimensionMismatch)

	other, err := New(10, 4)
	require.NoError(t, err)
	other.Update([]float64{1, 2, 3, 4})
	assert.ErrorIs(t, s.MergeInto(other), common.ErrDimensionMismatch)
	// The failed merge left the sketch untouched.
	assert.Equal(t, uint64(0), s.N())
	assert.Equal(t, 0, s.Size())
}

func TestSketch_EmptyQuery(t *testing.T) {
	s, err := New(10, 2)
	require.NoError(t, err)
	_, err = s.Query([]float64{0, 0})
	assert.ErrorIs(t, err, common.ErrEmptySketch)
}

func TestSketch_UpdateCopiesVector(t *testing.T) {
	s, err := New(10, 2)
	require.NoError(t, err)
	v := []float64{1, 2}
	require.NoError(t, s.Update(v))
	v[0] = 99
	q, err := s.Query([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 1.0, q)
}

func TestSketch_Kernel(t *testing.T) {
	assert.Equal(t, 1.0, Kernel([]float64{1, 2}, []float64{1, 2}))
	assert.InDelta(t, math.Exp(-2), Kernel([]float64{0, 0}, []float64{1, 1}), 1e-12)
	assert.InDelta(t, math.Exp(-1), Kernel([]float64{0}, []float64{-1}), 1e-12)
}

func TestSketch_SizeUnderLoad(t *testing.T) {
	const k, d, n = 171, 13, 2000
	rng := common.NewSeededRand(9)
	s, err := NewWithRand(k, d, common.NewSeededRand(10))
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, s.Update(gaussianVector(rng, d)))
	}
	assert.Equal(t, uint64(n), s.N())
	assert.Less(t, s.Size(), s.MaxSize())
	assert.LessOrEqual(t, float64(s.Size()), float64(n)*math.Log(float64(n)/float64(k)))
}

func TestSketch_Merge(t *testing.T) {
	s1, err := New(10, 4)
	require.NoError(t, err)
	require.NoError(t, s1.Update([]float64{0, 0, 0, 0}))
	require.NoError(t, s1.Update([]float64{-1.5, 123.4, 1.4e12, -5}))

	s2, err := New(10, 4)
	require.NoError(t, err)
	require.NoError(t, s2.Update([]float64{0.66, -10, 123, 0}))

	require.NoError(t, s1.MergeInto(s2))
	assert.Equal(t, uint64(3), s1.N())
	assert.Equal(t, 3, s1.Size())

	// The argument is unchanged.
	assert.Equal(t, uint64(1), s2.N())
	assert.Equal(t, 1, s2.Size())
}

func TestSketch_MergeSize(t *testing.T) {
	const k, d, n = 17, 25, 200
	rng := common.NewSeededRand(20)
	s1, err := NewWithRand(k, d, common.NewSeededRand(21))
	require.NoError(t, err)
	s2, err := NewWithRand(k, d, common.NewSeededRand(22))
	require.NoError(t, err)
	for i := 0; i < n/2; i++ {
		require.NoError(t, s1.Update(gaussianVector(rng, d)))
		require.NoError(t, s2.Update(gaussianVector(rng, d)))
	}
	merged, err := Merge(s1, s2)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), merged.N())
	assert.LessOrEqual(t, float64(merged.Size()), float64(n)*math.Log(float64(n)/float64(k)))
}

func TestSketch_Coreset(t *testing.T) {
	rng := common.NewSeededRand(30)
	s, err := NewWithRand(16, 3, common.NewSeededRand(31))
	require.NoError(t, err)
	const n = 500
	for i := 0; i < n; i++ {
		require.NoError(t, s.Update(gaussianVector(rng, 3)))
	}
	coreset := s.Coreset()
	assert.Len(t, coreset, s.Size())
	totalWeight := 0.0
	for _, wv := range coreset {
		assert.Len(t, wv.Vector, 3)
		assert.Greater(t, wv.Weight, 0.0)
		totalWeight += wv.Weight
	}
	// Compaction keeps roughly half of each buffer, so the coreset mass
	// stays near one.
	assert.InDelta(t, 1.0, totalWeight, 0.25)
}

func TestSketch_QueryTracksDensity(t *testing.T) {
	// Two well-separated clusters; the estimated density at each center
	// should dominate the estimate far away from both.
	rng := common.NewSeededRand(40)
	s, err := NewWithRand(32, 2, common.NewSeededRand(41))
	require.NoError(t, err)
	const n = 1000
	for i := 0; i < n; i++ {
		v := gaussianVector(rng, 2)
		for j := range v {
			v[j] *= 0.1
		}
		if i%2 == 0 {
			v[0] += 10
		}
		require.NoError(t, s.Update(v))
	}
	at0, err := s.Query([]float64{0, 0})
	require.NoError(t, err)
	at10, err := s.Query([]float64{10, 0})
	require.NoError(t, err)
	far, err := s.Query([]float64{100, 100})
	require.NoError(t, err)
	assert.Greater(t, at0, 10*far)
	assert.Greater(t, at10, 10*far)
}
