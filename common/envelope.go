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

package common

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Sketch variant tags used in the serialized envelope.
const (
	VariantKLL = "kll"
	VariantReq = "req"
	VariantGDE = "gde"
)

// envelope is the self-describing outer record of a serialized sketch. The
// checksum is the xxhash64 of the payload bytes exactly as embedded, so a
// round trip re-verifies against the identical byte sequence.
type envelope struct {
	Variant  string          `json:"variant"`
	Checksum uint64          `json:"checksum"`
	Sketch   json.RawMessage `json:"sketch"`
}

// EncodeEnvelope marshals payload and wraps it with the variant tag and
// checksum.
func EncodeEnvelope(variant string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding %s sketch: %w", variant, err)
	}
	out, err := json.Marshal(envelope{
		Variant:  variant,
		Checksum: xxhash.Sum64(body),
		Sketch:   body,
	})
	if err != nil {
		return "", fmt.Errorf("encoding %s envelope: %w", variant, err)
	}
	return string(out), nil
}

// DecodeEnvelope parses an envelope, verifies the variant tag and checksum,
// and unmarshals the payload into out.
func DecodeEnvelope(s string, variant string, out any) error {
	var env envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	if env.Variant != variant {
		return fmt.Errorf("%w: expected variant %q, got %q", ErrDeserialization, variant, env.Variant)
	}
	if xxhash.Sum64(env.Sketch) != env.Checksum {
		return fmt.Errorf("%w: checksum mismatch", ErrDeserialization)
	}
	if err := json.Unmarshal(env.Sketch, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	return nil
}
