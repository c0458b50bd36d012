// Copyright 2025 Tom Barlow
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
Package secrets stores the credential material of polarion-node.

Secrets are resolved through a priority-ordered chain of backends:

	env      - POLARION_NODE_SECRET_<KEY> variables (priority 100, read-only)
	keychain - OS keychain via go-keyring (priority 50)
	file     - AES-256-GCM encrypted file (priority 25)

Writes go to the highest-priority writable backend unless one is named:

	resolver := secrets.NewResolver(
	    secrets.NewEnvBackend(),
	    secrets.NewKeychainBackend(),
	    fileBackend,
	)
	err := resolver.Set(ctx, "credentials/polarionApi", encoded, "")

# Keys

Keys are slash separated. The env backend upper-cases them and replaces
'/', '-' and '.' with '_':

	credentials/polarionApi -> POLARION_NODE_SECRET_CREDENTIALS_POLARIONAPI

# File Backend

The file backend needs a master key from POLARION_NODE_MASTER_KEY or
$XDG_CONFIG_HOME/polarion-node/master.key (mode 0600). Without one it
reports itself unavailable. Encryption keys are derived with Argon2id and a
fresh salt on every write.
*/
package secrets
