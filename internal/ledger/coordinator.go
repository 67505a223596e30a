package ledger

import "sync"

// pairKey identifies an unordered account pair. Canonical ordering makes a
// transfer A->B and a transfer B->A contend on the same key.
type pairKey struct {
	lo, hi string
}

func makePairKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// lockCoordinator admits or denies an operation based on which accounts it
// touches. An account may be involved in at most one in-flight operation of
// any kind, so busyAccounts (single-account operations) and pairMembers
// (endpoints of in-flight transfers) are checked together. Membership test and
// insert happen as one step under mu: no two operations can both observe
// "granted" for overlapping resource sets.
//
// Admission never blocks. A denied caller gets immediate feedback and decides
// whether to retry; there is no queue and no waiting state.
type lockCoordinator struct {
	mu           sync.Mutex
	busyAccounts map[string]struct{}
	busyPairs    map[pairKey]struct{}
	pairMembers  map[string]struct{}
}

func newLockCoordinator() *lockCoordinator {
	c := &lockCoordinator{}
	c.clearLocked()
	return c
}

// accountBusy reports whether id participates in any in-flight operation,
// single or pair. Callers hold mu.
func (c *lockCoordinator) accountBusy(id string) bool {
	if _, ok := c.busyAccounts[id]; ok {
		return true
	}
	_, ok := c.pairMembers[id]
	return ok
}

// tryAcquireAccount admits a single-account operation.
func (c *lockCoordinator) tryAcquireAccount(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accountBusy(id) {
		return false
	}
	c.busyAccounts[id] = struct{}{}
	return true
}

// releaseAccount is safe on any exit path; releasing an id that is not held
// is a no-op.
func (c *lockCoordinator) releaseAccount(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.busyAccounts, id)
}

// tryAcquireTransfer admits a two-account transfer. Denied when the pair key
// is already held, or when either account is busy in any capacity, including
// as the endpoint of a different pair.
func (c *lockCoordinator) tryAcquireTransfer(a, b string) bool {
	key := makePairKey(a, b)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.busyPairs[key]; held {
		return false
	}
	if c.accountBusy(a) || c.accountBusy(b) {
		return false
	}
	c.busyPairs[key] = struct{}{}
	c.pairMembers[a] = struct{}{}
	c.pairMembers[b] = struct{}{}
	return true
}

func (c *lockCoordinator) releaseTransfer(a, b string) {
	key := makePairKey(a, b)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.busyPairs[key]; !held {
		return
	}
	delete(c.busyPairs, key)
	delete(c.pairMembers, a)
	delete(c.pairMembers, b)
}

// clearLocked resets all admission bookkeeping. Callers hold mu, except
// during construction.
func (c *lockCoordinator) clearLocked() {
	c.busyAccounts = make(map[string]struct{})
	c.busyPairs = make(map[pairKey]struct{})
	c.pairMembers = make(map[string]struct{})
}
