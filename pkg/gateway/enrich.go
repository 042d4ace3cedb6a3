// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"bytes"
	"encoding/json"

	"github.com/pulse-training/pulse-gw/pkg/auth"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
)

// EnrichSessionPayload adds the caller's userId, userEmail and userRole to a
// session start or complete body. The body must be a JSON object or empty.
// Caller-supplied values for those keys are overwritten.
func EnrichSessionPayload(body []byte, id auth.Identity) ([]byte, error) {
	payload := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, apierr.Validation("session payload must be a JSON object")
		}
		if payload == nil {
			payload = map[string]json.RawMessage{}
		}
	}
	set := func(k, v string) {
		b, _ := json.Marshal(v)
		payload[k] = b
	}
	set("userId", id.UserID)
	set("userEmail", id.Email)
	set("userRole", string(id.Role))
	return json.Marshal(payload)
}
