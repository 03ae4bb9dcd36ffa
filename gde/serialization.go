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
	"fmt"

	"github.com/edoliberty/streaming-quantiles/common"
)

type serialCompactor struct {
	Items [][]float64 `json:"items"`
}

type serialSketch struct {
	K          int               `json:"k"`
	D          int               `json:"d"`
	N          uint64            `json:"n"`
	Compactors []serialCompactor `json:"compactors"`
}

// ToString serializes the sketch as a self-describing JSON record.
func (s *Sketch) ToString() (string, error) {
	payload := serialSketch{
		K:          s.k,
		D:          s.d,
		N:          s.n,
		Compactors: make([]serialCompactor, len(s.compactors)),
	}
	for h, buf := range s.compactors {
		items := buf
		if items == nil {
			items = [][]float64{}
		}
		payload.Compactors[h] = serialCompactor{Items: items}
	}
	return common.EncodeEnvelope(common.VariantGDE, payload)
}

// FromString reconstructs a sketch serialized by ToString.
func FromString(str string) (*Sketch, error) {
	var payload serialSketch
	if err := common.DecodeEnvelope(str, common.VariantGDE, &payload); err != nil {
		return nil, err
	}
	s, err := New(payload.K, payload.D)
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
		for _, v := range sc.Items {
			if len(v) != payload.D {
				return nil, fmt.Errorf("%w: vector of dimension %d at height %d, want %d", common.ErrDeserialization, len(v), h, payload.D)
			}
			cp := make([]float64, payload.D)
			copy(cp, v)
			s.compactors[h] = append(s.compactors[h], cp)
		}
	}
	s.n = payload.N
	s.recomputeSize()
	return s, nil
}
