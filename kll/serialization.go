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
	"fmt"

	"github.com/edoliberty/streaming-quantiles/common"
)

type serialCompactor[C comparable] struct {
	Items          []C `json:"items"`
	NumCompactions int `json:"numCompactions"`
	Offset         int `json:"offset"`
}

type serialSketch[C comparable] struct {
	K          int                  `json:"k"`
	C          float64              `json:"c"`
	Lazy       bool                 `json:"lazy"`
	Alternate  bool                 `json:"alternate"`
	N          uint64               `json:"n"`
	Compactors []serialCompactor[C] `json:"compactors"`
}

// ToString serializes the sketch as a self-describing JSON record. The item
// type must be representable in JSON.
func (s *Sketch[C]) ToString() (string, error) {
	payload := serialSketch[C]{
		K:          s.k,
		C:          s.c,
		Lazy:       s.lazy,
		Alternate:  s.alternate,
		N:          s.n,
		Compactors: make([]serialCompactor[C], len(s.compactors)),
	}
	for h, c := range s.compactors {
		items := c.buf
		if items == nil {
			items = []C{}
		}
		payload.Compactors[h] = serialCompactor[C]{
			Items:          items,
			NumCompactions: c.numCompactions,
			Offset:         c.offset,
		}
	}
	return common.EncodeEnvelope(common.VariantKLL, payload)
}

// FromString reconstructs a sketch serialized by ToString. The compare
// function is not part of the record and must be supplied again.
func FromString[C comparable](str string, compareFn common.CompareFn[C]) (*Sketch[C], error) {
	var payload serialSketch[C]
	if err := common.DecodeEnvelope(str, common.VariantKLL, &payload); err != nil {
		return nil, err
	}
	cfg := Config{
		K:         payload.K,
		C:         payload.C,
		Lazy:      payload.Lazy,
		Alternate: payload.Alternate,
	}
	s, err := NewWithConfig[C](cfg, compareFn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDeserialization, err)
	}
	if len(payload.Compactors) == 0 {
		return nil, fmt.Errorf("%w: no compactors", common.ErrDeserialization)
	}
	for len(s.compactors) < len(payload.Compactors) {
		s.grow()
	}
	for h, sc := range payload.Compactors {
		c := s.compactors[h]
		c.buf = append(c.buf, sc.Items...)
		c.numCompactions = sc.NumCompactions
		c.offset = sc.Offset
	}
	s.n = payload.N
	s.recomputeSize()
	return s, nil
}
