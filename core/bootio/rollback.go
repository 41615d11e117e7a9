/*
   Copyright The bootadapter Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package bootio

import (
	"context"

	"github.com/containerd/log"
)

// nullRollbackStore is the default RollbackStore. It reports index 0 for
// every slot and discards writes. Without persistent monotonic counters
// rollback protection is NOT enforced: an attacker can boot any previously
// signed image. Integrators that need the protection must wire a real store
// through WithRollbackStore.
type nullRollbackStore struct{}

func (nullRollbackStore) RollbackIndex(ctx context.Context, slot uint64) (uint64, error) {
	log.G(ctx).WithField("slot", slot).Debug("rollback index not persisted, reporting 0")
	return 0, nil
}

func (nullRollbackStore) SetRollbackIndex(ctx context.Context, slot, index uint64) error {
	log.G(ctx).WithFields(log.Fields{
		"slot":  slot,
		"index": index,
	}).Debug("rollback index not persisted, discarding write")
	return nil
}
