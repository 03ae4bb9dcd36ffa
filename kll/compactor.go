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

package kll

import (
	"sort"

	"github.com/edoliberty/streaming-quantiles/common"
)

// compactor is one level of the sketch. Items held at height h carry an
// implicit weight of 2^h; compacting emits roughly half of the buffer to
// height h+1, doubling the survivors' weight.
type compactor[C comparable] struct {
	buf            []C
	numCompactions int
	offset         int
	alternate      bool
	rng            *common.Rand
	compareFn      common.CompareFn[C]
}

func newCompactor[C comparable](alternate bool, rng *common.Rand, compareFn common.CompareFn[C]) *compactor[C] {
	return &compactor[C]{
		alternate: alternate,
		rng:       rng,
		compareFn: compareFn,
	}
}

func (c *compactor[C]) len() int {
	return len(c.buf)
}

func (c *compactor[C]) push(item C) {
	c.buf = append(c.buf, item)
}

func (c *compactor[C]) extend(items []C) {
	c.buf = append(c.buf, items...)
}

// rank counts the items in the buffer that are <= v.
func (c *compactor[C]) rank(v C) int64 {
	r := int64(0)
	for _, item := range c.buf {
		if !c.compareFn(v, item) {
			r++
		}
	}
	return r
}

// compact sorts the buffer and emits every other item, starting at the
// chosen offset, in ascending order. An unpaired last item stays behind so
// the emitted count is exactly half the compacted part. Alternating the
// offset over consecutive compactions keeps the rank estimator unbiased.
func (c *compactor[C]) compact() []C {
	if c.alternate && c.numCompactions%2 == 1 {
		c.offset = 1 - c.offset
	} else {
		c.offset = c.rng.Coin()
	}
	sort.Slice(c.buf, func(i, j int) bool {
		return c.compareFn(c.buf[i], c.buf[j])
	})

	end := len(c.buf)
	hasTail := end%2 == 1
	if hasTail {
		end--
	}
	var tail C
	if hasTail {
		tail = c.buf[end]
	}

	out := make([]C, 0, (end-c.offset+1)/2)
	for i := c.offset; i < end; i += 2 {
		out = append(out, c.buf[i])
	}

	c.buf = c.buf[:0]
	if hasTail {
		c.buf = append(c.buf, tail)
	}
	c.numCompactions++
	return out
}
