// Copyright 2025 Athos
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
Package logger provides structured JSON logging for Athos components.

Every entry carries the component name, the deployment instance, the
container hostname, and the tenant/request correlation IDs, so that logs
from all components of one tenant's traffic can be stitched together in
the aggregator.

Usage:

	l := logger.New("guardian")
	l.Info(tenantID, requestID, "access decision", map[string]interface{}{
		"domain":  "example.com",
		"blocked": true,
	})

Entries are written to stdout as single-line JSON; the container runtime
is responsible for shipping them.
*/
package logger
