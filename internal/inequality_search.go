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
	"github.com/edoliberty/streaming-quantiles/common"
)

type Inequality int

const (
	InequalityLT Inequality = iota
	InequalityLE
	InequalityGE
	InequalityGT
)

// FindWithInequality searches arr[low..high], sorted ascending per
// comparator, and returns the index of the best match for the criterion:
// the rightmost index for LT/LE, the leftmost for GE/GT. Returns -1 when no
// element satisfies the criterion.
func FindWithInequality[C comparable](arr []C, low int, high int, v C, crit Inequality, compareFn common.CompareFn[C]) int {
	if len(arr) == 0 || low > high {
		return -1
	}
	switch crit {
	case InequalityLT:
		idx := lowerBound(arr, low, high, v, compareFn)
		if idx == low {
			return -1
		}
		return idx - 1
	case InequalityLE:
		idx := upperBound(arr, low, high, v, compareFn)
		if idx == low {
			return -1
		}
		return idx - 1
	case InequalityGE:
		idx := lowerBound(arr, low, high, v, compareFn)
		if idx > high {
			return -1
		}
		return idx
	case InequalityGT:
		idx := upperBound(arr, low, high, v, compareFn)
		if idx > high {
			return -1
		}
		return idx
	default:
		panic("invalid inequality")
	}
}

// lowerBound returns the first index in [low, high+1] whose element is not
// less than v.
func lowerBound[C comparable](arr []C, low int, high int, v C, compareFn common.CompareFn[C]) int {
	lo, hi := low, high+1
	for lo < hi {
		mid := lo + (hi-lo)/2
		if compareFn(arr[mid], v) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// upperBound returns the first index in [low, high+1] whose element is
// greater than v.
func upperBound[C comparable](arr []C, low int, high int, v C, compareFn common.CompareFn[C]) int {
	lo, hi := low, high+1
	for lo < hi {
		mid := lo + (hi-lo)/2
		if compareFn(v, arr[mid]) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}
