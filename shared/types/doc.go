// Copyright 2025 Athos
// SPDX-License-Identifier: Apache-2.0
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package types provides shared type definitions used across Athos components.

# Overview

This package is the single source of truth for the records that flow
between the guardian decision core, the repository connectors, and the
transport layer: tenants, users, groups, policies, tenant configuration,
navigation events, and the authenticated caller's claims.

Records here are plain data. Decision logic lives in athos/platform/guardian;
persistence lives in athos/platform/connectors.
*/
package types
