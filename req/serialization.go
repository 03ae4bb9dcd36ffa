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
	"fmt"

	"github.com/edoliberty/streaming-quantiles/common"
)

// serialCompactor captures the full per-level layout; section size and the
// region sizes drift per level as sections double, so they are recorded per
// compactor rather than once.
type serialCompactor[C comparable] struct {
	Items          []C     `json:"items"`
	NumCompactions int     `json:"numCompactions"`
	SchedState     uint64  `json:"schedState"`
	Offset         int     `json:"offset"`
	NumSections    int     `json:"numSections"`
	SectionSize    int     `json:"sectionSize"`
	SectionSizeF   float64 `json:"sectionSizeF"`
	Never          int     `json:"never"`
	Always         int     `json:"always"`
}

type serialSketch[C comparable] struct {
	K            int                  `json:"k"`
	Schedule     Schedule             `json:"schedule"`
	Lazy         bool                 `json:"lazy"`
	Alternate    bool                 `json:"alternate"`
	Regions      bool                 `json:"regions"`
	Never        int                  `json:"never"`
	Always       int                  `json:"always"`
	NeverGrows   bool                 `json:"neverGrows"`
	InitSections int                  `json:"initSections"`
	N            uint64               `json:"n"`
	Compactors   []serialCompactor[C] `json:"compactors"`
}

// ToString serializes the sketch as a self-describing JSON record. The item
// type must be representable in JSON.
func (s *Sketch[C]) ToString() (string, error) {
	payload := serialSketch[C]{
		K:            s.k,
		Schedule:     s.schedule,
		Lazy:         s.lazy,
		Alternate:    s.alternate,
		Regions:      s.regions,
		Never:        s.never,
		Always:       s.always,
		NeverGrows:   s.neverGrows,
		InitSections: s.initSections,
		N:            s.n,
		Compactors:   make([]serialCompactor[C], len(s.compactors)),
	}
	for h, c := range s.compactors {
		items := c.buf
		if items == nil {
			items = []C{}
		}
		payload.Compactors[h] = serialCompactor[C]{
			Items:          items,
			NumCompactions: c.numCompactions,
			SchedState:     c.state,
			Offset:         c.offset,
			NumSections:    c.numSections,
			SectionSize:    c.sectionSize,
			SectionSizeF:   c.sectionSizeF,
			Never:          c.never,
			Always:         c.always,
		}
	}
	return common.EncodeEnvelope(common.VariantReq, payload)
}

// FromString reconstructs a sketch serialized by ToString. The compare
// function is not part of the record and must be supplied again.
func FromString[C comparable](str string, compareFn common.CompareFn[C]) (*Sketch[C], error) {
	var payload serialSketch[C]
	if err := common.DecodeEnvelope(str, common.VariantReq, &payload); err != nil {
		return nil, err
	}
	cfg := Config{
		K:            payload.K,
		Schedule:     payload.Schedule,
		Lazy:         payload.Lazy,
		Alternate:    payload.Alternate,
		Never:        -1,
		Always:       -1,
		InitSections: payload.InitSections,
	}
	if payload.Regions {
		cfg.Never = payload.Never
		cfg.Always = payload.Always
	}
	s, err := NewWithConfig[C](cfg, compareFn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDeserialization, err)
	}
	s.neverGrows = payload.NeverGrows
	if len(payload.Compactors) == 0 {
		return nil, fmt.Errorf("%w: no compactors", common.ErrDeserialization)
	}
	for len(s.compactors) < len(payload.Compactors) {
		s.grow()
	}
	for h, sc := range payload.Compactors {
		c := s.compactors[h]
		if sc.NumSections < 2 || sc.SectionSize <= 0 {
			return nil, fmt.Errorf("%w: bad section layout at height %d", common.ErrDeserialization, h)
		}
		c.buf = append(c.buf, sc.Items...)
		c.numCompactions = sc.NumCompactions
		c.state = sc.SchedState
		c.offset = sc.Offset
		c.numSections = sc.NumSections
		c.sectionSize = sc.SectionSize
		c.sectionSizeF = sc.SectionSizeF
		c.never = sc.Never
		c.always = sc.Always
		c.neverGrows = payload.NeverGrows
	}
	s.n = payload.N
	s.recomputeSize()
	s.updateMaxSize()
	return s, nil
}
