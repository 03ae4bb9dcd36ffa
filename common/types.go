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

// Package common holds the types shared by the sketch families: the item
// comparator, the per-sketch random source, the error kinds and the weighted
// item views produced by the query surface.
package common

import "golang.org/x/exp/constraints"

// CompareFn reports whether the first item sorts strictly before the second.
type CompareFn[C comparable] func(C, C) bool

// NaturalOrder returns a CompareFn for the type's natural ascending order.
func NaturalOrder[C constraints.Ordered]() CompareFn[C] {
	return func(a C, b C) bool {
		return a < b
	}
}

// ReverseOrder returns a CompareFn for the type's natural descending order.
func ReverseOrder[C constraints.Ordered]() CompareFn[C] {
	return func(a C, b C) bool {
		return a > b
	}
}
