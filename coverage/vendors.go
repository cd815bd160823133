// Copyright 2026 Fixbase Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package coverage

import (
	"regexp"
	"strings"
)

// vendorVocabulary lists canonical manufacturer names with the aliases and
// spellings seen in real queries. Detection is case-insensitive and takes
// the first matching entry, so entry order is the tiebreak.
var vendorVocabulary = []struct {
	canonical string
	aliases   []string
}{
	{"siemens", []string{"siemens", "sinamics", "simatic", "micromaster"}},
	{"abb", []string{"abb", "acs550", "acs880"}},
	{"allen-bradley", []string{"allen-bradley", "allen bradley", "rockwell", "powerflex"}},
	{"fanuc", []string{"fanuc"}},
	{"mitsubishi", []string{"mitsubishi", "melsec", "freqrol"}},
	{"schneider", []string{"schneider", "altivar", "telemecanique"}},
	{"omron", []string{"omron", "sysmac"}},
	{"yaskawa", []string{"yaskawa", "varispeed"}},
	{"danfoss", []string{"danfoss", "vlt"}},
}

var (
	// faultCodeRE matches vendor fault codes like F0003, E21 or A0501.
	faultCodeRE = regexp.MustCompile(`(?i)\b[FEA]\d{2,5}\b`)

	// modelRE matches equipment model designators like G120 or S7-1200.
	modelRE = regexp.MustCompile(`(?i)\b[A-Z]{1,3}\d{1,2}(?:-\d{2,4})?\d*\b`)
)

// Detection is the outcome of vendor vocabulary matching for one query.
type Detection struct {
	// Manufacturer is the canonical vendor name, empty when undetected.
	Manufacturer string

	// Confidence is the manufacturer detection confidence in [0,1].
	Confidence float64

	// Keywords are the detected fault codes and model designators,
	// lowercased, in query order.
	Keywords []string
}

// DetectVendor matches a query against the vendor vocabulary and the fault
// code and model patterns. Confidence tiers: explicit vendor name plus a
// fault code or model designator scores highest, a bare vendor name less,
// and a fault code or model with no recognizable vendor least.
func DetectVendor(query string) Detection {
	lower := strings.ToLower(query)

	var det Detection
	for _, vendor := range vendorVocabulary {
		for _, alias := range vendor.aliases {
			if containsWord(lower, alias) {
				det.Manufacturer = vendor.canonical
				break
			}
		}
		if det.Manufacturer != "" {
			break
		}
	}

	seen := make(map[string]bool)
	for _, code := range faultCodeRE.FindAllString(query, -1) {
		code = strings.ToLower(code)
		if !seen[code] {
			seen[code] = true
			det.Keywords = append(det.Keywords, code)
		}
	}
	for _, model := range modelRE.FindAllString(query, -1) {
		model = strings.ToLower(model)
		if !seen[model] {
			seen[model] = true
			det.Keywords = append(det.Keywords, model)
		}
	}

	switch {
	case det.Manufacturer != "" && len(det.Keywords) > 0:
		det.Confidence = 1.0
	case det.Manufacturer != "":
		det.Confidence = 0.8
	case len(det.Keywords) > 0:
		det.Confidence = 0.3
	default:
		det.Confidence = 0
	}
	return det
}

// containsWord reports whether word occurs in text on word boundaries.
func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
