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

package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edoliberty/streaming-quantiles/common"
)

func TestFindWithInequality(t *testing.T) {
	arr := []int64{10, 20, 20, 30, 40}
	cmp := common.NaturalOrder[int64]()
	hi := len(arr) - 1

	assert.Equal(t, -1, FindWithInequality(arr, 0, hi, int64(10), InequalityLT, cmp))
	assert.Equal(t, 0, FindWithInequality(arr, 0, hi, int64(15), InequalityLT, cmp))
	assert.Equal(t, 2, FindWithInequality(arr, 0, hi, int64(30), InequalityLT, cmp))
	assert.Equal(t, 4, FindWithInequality(arr, 0, hi, int64(100), InequalityLT, cmp))

	assert.Equal(t, 0, FindWithInequality(arr, 0, hi, int64(10), InequalityLE, cmp))
	assert.Equal(t, 2, FindWithInequality(arr, 0, hi, int64(20), InequalityLE, cmp))
	assert.Equal(t, -1, FindWithInequality(arr, 0, hi, int64(5), InequalityLE, cmp))

	assert.Equal(t, 0, FindWithInequality(arr, 0, hi, int64(5), InequalityGE, cmp))
	assert.Equal(t, 1, FindWithInequality(arr, 0, hi, int64(20), InequalityGE, cmp))
	assert.Equal(t, 3, FindWithInequality(arr, 0, hi, int64(25), InequalityGE, cmp))
	assert.Equal(t, -1, FindWithInequality(arr, 0, hi, int64(50), InequalityGE, cmp))

	assert.Equal(t, 3, FindWithInequality(arr, 0, hi, int64(20), InequalityGT, cmp))
	assert.Equal(t, 4, FindWithInequality(arr, 0, hi, int64(30), InequalityGT, cmp))
	assert.Equal(t, -1, FindWithInequality(arr, 0, hi, int64(40), InequalityGT, cmp))

	assert.Equal(t, -1, FindWithInequality([]int64{}, 0, -1, int64(1), InequalityGE, cmp))
}

func TestFindWithInequality_SubRange(t *testing.T) {
	arr := []int64{10, 20, 30, 40, 50}
	cmp := common.NaturalOrder[int64]()
	assert.Equal(t, 1, FindWithInequality(arr, 1, 3, int64(5), InequalityGE, cmp))
	assert.Equal(t, -1, FindWithInequality(arr, 1, 3, int64(45), InequalityGE, cmp))
	assert.Equal(t, 3, FindWithInequality(arr, 1, 3, int64(100), InequalityLE, cmp))
}
