// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// BakuTZ is the fixed UTC+4 offset every timestamp in the API uses.
// A single fixed offset keeps timestamps comparable across responses;
// this is a deliberate simplification, not an i18n feature.
var BakuTZ = time.FixedZone("UTC+4", 4*60*60)

// Timestamp returns the current time formatted for API responses.
func Timestamp() string {
	return FormatTime(time.Now())
}

// FormatTime renders t as ISO-8601 in the fixed UTC+4 offset.
func FormatTime(t time.Time) string {
	return t.In(BakuTZ).Format(time.RFC3339)
}
