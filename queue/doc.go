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
Package queue provides the durable work queue feeding the ingestion
pipeline. Queue state is persisted through the job repository, never held
in process memory, so a crashed worker loses nothing.

Scheduling is priority-weighted FIFO: higher Priority claims first, ties
break by enqueue time. Capacity is bounded; when full, an incoming job
displaces the lowest-priority pending job only if it outranks it, otherwise
it is rejected with ErrQueueFull.

Claims are atomic through the repository's ClaimJob, so at most one worker
processes a job at a time. Each claim carries a liveness deadline; jobs
abandoned past their deadline are swept back to pending by RequeueExpired,
which Workers runs on every idle poll.
*/
package queue
