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

package req

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edoliberty/streaming-quantiles/common"
)

func TestSerialization_RoundTrip(t *testing.T) {
	s := newIntSketch(t, 50, 13)
	for i := 0; i < 30000; i++ {
		s.Update(i)
	}
	str, err := s.ToString()
	require.NoError(t, err)

	loaded, err := FromString[int](str, common.NaturalOrder[int]())
	require.NoError(t, err)

	assert.Equal(t, s.K(), loaded.K())
	assert.Equal(t, s.N(), loaded.N())
	assert.Equal(t, s.Size(), loaded.Size())
	assert.Equal(t, s.MaxSize(), loaded.MaxSize())
	assert.Equal(t, s.NumLevels(), loaded.NumLevels())
	for v := 0; v < 30000; v += 1000 {
		assert.Equal(t, s.Rank(v), loaded.Rank(v))
	}
	require.Equal(t, len(s.compactors), len(loaded.compactors))
	for h := range s.compactors {
		assert.Equal(t, s.compactors[h].state, loaded.compactors[h].state)
		assert.Equal(t, s.compactors[h].numCompactions, loaded.compactors[h].numCompactions)
		assert.Equal(t, s.compactors[h].numSections, loaded.compactors[h].numSections)
		assert.Equal(t, s.compactors[h].sectionSize, loaded.compactors[h].sectionSize)
		assert.Equal(t, s.compactors[h].sectionSizeF, loaded.compactors[h].sectionSizeF)
		assert.Equal(t, s.compactors[h].capacity(), loaded.compactors[h].capacity())
	}

	// A second round trip is byte-identical.
	str2, err := loaded.ToString()
	require.NoError(t, err)
	assert.Equal(t, str, str2)
}

func TestSerialization_RoundTripExperimentalRegions(t *testing.T) {
	cfg := DefaultConfig(50)
	cfg.Never = 300
	cfg.Always = 50
	cfg.Schedule = ScheduleRandomized
	cfg.Rand = common.NewSeededRand(7)
	s, err := NewWithConfig[int](cfg, common.NaturalOrder[int]())
	require.NoError(t, err)
	for i := 0; i < 20000; i++ {
		s.Update(i)
	}
	str, err := s.ToString()
	require.NoError(t, err)
	loaded, err := FromString[int](str, common.NaturalOrder[int]())
	require.NoError(t, err)
	assert.Equal(t, s.Size(), loaded.Size())
	assert.Equal(t, s.MaxSize(), loaded.MaxSize())
	for h := range s.compactors {
		assert.Equal(t, s.compactors[h].never, loaded.compactors[h].never)
		assert.Equal(t, s.compactors[h].always, loaded.compactors[h].always)
	}
}

func TestSerialization_Malformed(t *testing.T) {
	_, err := FromString[int]("[]", common.NaturalOrder[int]())
	assert.ErrorIs(t, err, common.ErrDeserialization)

	_, err = FromString[int](`{"variant":"gde","checksum":0,"sketch":{}}`, common.NaturalOrder[int]())
	assert.ErrorIs(t, err, common.ErrDeserialization)
}
