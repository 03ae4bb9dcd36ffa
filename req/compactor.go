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
	"math"
	"sort"

	"github.com/edoliberty/streaming-quantiles/common"
	"github.com/edoliberty/streaming-quantiles/internal"
)

// Schedule selects how a compactor chooses the number of trailing sections
// to compact on each call.
type Schedule string

const (
	// ScheduleDeterministic descends one section deeper each time the
	// schedule state rolls over a run of trailing one bits.
	ScheduleDeterministic Schedule = "deterministic"
	// ScheduleRandomized samples the section count geometrically.
	ScheduleRandomized Schedule = "randomized"
	// ScheduleRandomizedLinear picks the section count uniformly.
	ScheduleRandomizedLinear Schedule = "randomizedLinear"
)

// minSectionSize is the smallest section size worth scheduling over; below
// it the compactor falls back to compacting the whole upper half.
const minSectionSize = 4

// compactor is one level of the relative-error sketch. Its buffer splits
// into a lower half that is never compacted and numSections trailing
// sections of sectionSize items each; a compaction removes an integer number
// of trailing sections. In the experimental region layout the lower half is
// replaced by an explicit never region and a trailing always region joins
// every compaction.
type compactor[C comparable] struct {
	buf            []C
	numCompactions int
	state          uint64
	offset         int
	sectionSize    int
	sectionSizeF   float64
	numSections    int
	schedule       Schedule
	alternate      bool
	regions        bool
	never          int
	always         int
	neverGrows     bool
	rng            *common.Rand
	compareFn      common.CompareFn[C]
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

func (c *compactor[C]) capacity() int {
	if c.regions {
		return c.never + c.numSections*c.sectionSize + c.always
	}
	return 2 * c.numSections * c.sectionSize
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

// startIndex returns where a compaction of t trailing sections begins.
func (c *compactor[C]) startIndex(t int) int {
	if c.regions {
		return c.never + (c.numSections-t)*c.sectionSize
	}
	return c.capacity()/2 + (c.numSections-t)*c.sectionSize
}

// sectionsToCompact picks the number of trailing sections per the schedule,
// always at least one so every compaction makes progress.
func (c *compactor[C]) sectionsToCompact() int {
	var t int
	switch c.schedule {
	case ScheduleRandomized:
		t = 1 + c.rng.Geometric(c.numSections-1)
	case ScheduleRandomizedLinear:
		t = c.rng.UniformInt(1, c.numSections)
	default:
		t = internal.TrailingOnes(c.state) + 1
	}
	if t > c.numSections {
		t = c.numSections
	}
	return t
}

// compact sorts the buffer, removes the chosen trailing part and emits every
// other removed item, in ascending order. The lower half of the buffer never
// participates, which is what carries the relative-error guarantee.
func (c *compactor[C]) compact() []C {
	sort.Slice(c.buf, func(i, j int) bool {
		return c.compareFn(c.buf[i], c.buf[j])
	})

	var start int
	if c.sectionSize < minSectionSize {
		// Sections too small to schedule over; compact half the buffer.
		if c.regions {
			start = c.never
		} else {
			start = c.capacity() / 2
		}
	} else {
		start = c.startIndex(c.sectionsToCompact())
	}

	// The compacted part must have an even size so that emitting every
	// other item halves its weight exactly.
	if (len(c.buf)-start)%2 == 1 {
		if start > 0 {
			start--
		} else {
			start++
		}
	}

	if c.alternate && c.numCompactions%2 == 1 {
		c.offset = 1 - c.offset
	} else {
		c.offset = c.rng.Coin()
	}

	out := make([]C, 0, (len(c.buf)-start)/2)
	for i := start + c.offset; i < len(c.buf); i += 2 {
		out = append(out, c.buf[i])
	}
	c.buf = c.buf[:start]

	c.numCompactions++
	c.state++
	c.ensureEnoughSections()
	return out
}

// ensureEnoughSections doubles the section count once the compaction count
// outgrows the schedule's range, shrinking the section size by sqrt(2) so
// the capacity grows with the square root of the compaction log.
func (c *compactor[C]) ensureEnoughSections() {
	if c.numSections-1 >= 63 {
		return
	}
	if uint64(c.numCompactions) < uint64(1)<<uint(c.numSections-1) {
		return
	}
	if int(c.sectionSizeF/math.Sqrt2) < 1 {
		// Sections cannot shrink any further; freeze the layout.
		return
	}
	c.numSections *= 2
	c.sectionSizeF = c.sectionSizeF / math.Sqrt2
	c.sectionSize = int(c.sectionSizeF)
	if c.regions {
		c.always = c.sectionSize
		if c.neverGrows {
			c.never = c.sectionSize*c.numSections + c.always
		}
	}
}

// mergeIntoSelf folds another compactor of the same height into this one.
// ORing the schedule states makes subsequent deterministic compactions
// descend into the already-compacted suffix, which the relative-error bound
// depends on.
func (c *compactor[C]) mergeIntoSelf(other *compactor[C]) {
	c.state |= other.state
	c.numCompactions += other.numCompactions
	c.ensureEnoughSections()
	c.buf = append(c.buf, other.buf...)
}
