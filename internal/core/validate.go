package core

// Validate checks an entry for structural completeness: required fields
// present and enum fields drawn from their closed sets. It does not check
// cross-entry consistency; a Tombstone's target is not required to exist.
func Validate(e Entry) error {
	switch v := e.(type) {
	case *Behavior:
		if v.Category == "" {
			return missing(KindBehavior, "category")
		}
		if v.Text == "" {
			return missing(KindBehavior, "text")
		}
	case *Identity:
		if v.Key == "" {
			return missing(KindIdentity, "key")
		}
	case *User:
		if v.Key == "" {
			return missing(KindUser, "key")
		}
	case *Learning:
		if v.Text == "" {
			return missing(KindLearning, "text")
		}
	case *Preference:
		if v.Text == "" {
			return missing(KindPreference, "text")
		}
		if v.Category == "" {
			return missing(KindPreference, "category")
		}
	case *Context:
		if v.Project == "" {
			return missing(KindContext, "project")
		}
		if v.Path == "" {
			return missing(KindContext, "path")
		}
	case *Task:
		if v.Description == "" {
			return missing(KindTask, "description")
		}
		switch v.Status {
		case TaskPending, TaskDone:
		default:
			return invalid(KindTask, "status", string(v.Status))
		}
		switch v.Priority {
		case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		default:
			return invalid(KindTask, "priority", string(v.Priority))
		}
	case *Reminder:
		if v.Description == "" {
			return missing(KindReminder, "description")
		}
		if v.FireAt.IsZero() {
			return missing(KindReminder, "fire_at")
		}
	case *Tombstone:
		if v.TargetID == "" {
			return missing(KindTombstone, "target_id")
		}
	case *Meta:
		if v.Key == "" {
			return missing(KindMeta, "key")
		}
	}
	return nil
}

func missing(kind Kind, field string) error {
	return &ValidationError{Kind: kind, Field: field, Reason: "is required"}
}

func invalid(kind Kind, field, value string) error {
	return &ValidationError{Kind: kind, Field: field, Reason: "has invalid value " + value}
}
