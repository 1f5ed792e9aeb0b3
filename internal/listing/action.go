package listing

// ActionResult reports a mutating action and whether it reached durable storage.
type ActionResult struct {
	Action    string `json:"action"`
	TargetID  string `json:"targetId"`
	Persisted bool   `json:"persisted"`
	Detail    string `json:"detail,omitempty"`
}

// Persisted returns a result for an action written to storage.
func Persisted(action, targetID, detail string) ActionResult {
	return ActionResult{Action: action, TargetID: targetID, Persisted: true, Detail: detail}
}

// NotPersisted returns a result for an action that was accepted but not durably written.
func NotPersisted(action, targetID, detail string) ActionResult {
	return ActionResult{Action: action, TargetID: targetID, Persisted: false, Detail: detail}
}
