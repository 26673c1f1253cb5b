package models

// All returns every persisted model, in migration order.
func All() []any {
	return []any{
		&Recording{},
		&Exemplar{},
		&Job{},
	}
}
