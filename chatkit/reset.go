package chatkit

// ResetPlan says which session side effects an identity change requires.
type ResetPlan struct {
	WipeStore      bool
	RebuildWorkers bool
}

// needsReset decides the reset plan for a login. oldUserID is empty when no
// user was tracked before. A first login or a user switch wipes the store and
// rebuilds workers. A same-user login never wipes the store; it rebuilds
// workers only when none exist yet (fresh process resuming a session).
func needsReset(oldUserID, newUserID string, workerCount int) ResetPlan {
	if oldUserID == "" || oldUserID != newUserID {
		return ResetPlan{WipeStore: true, RebuildWorkers: true}
	}
	if workerCount == 0 {
		return ResetPlan{RebuildWorkers: true}
	}
	return ResetPlan{}
}
