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

/*
Package coverage decides how a query should be handled based on how well
the stored atoms cover it.

The Evaluator detects the manufacturer from a vendor vocabulary, retrieves
candidate atoms lexically, and aggregates them into an atom count and an
average relevance. The Router maps those statistics onto four routes:

	A  direct answer, strong coverage
	B  assisted answer, thin coverage
	C  research fallback, no trustworthy coverage
	D  clarify, ambiguous intent

Route D is evaluated first and overrides the others whenever the blended
route confidence falls below its minimum. All tier boundaries are inclusive
on the lower bound. An evaluation error degrades to Route D rather than
failing the query.

The GapDetector watches routing decisions and enqueues ingestion jobs for
manufacturers the store keeps missing, closing the loop from query traffic
back to knowledge growth.
*/
package coverage
