package entity

// All lists every persisted model, in migration order.
func All() []any {
	return []any{
		&User{},
		&Message{},
		&DMNotification{},
		&VocabEntry{},
	}
}
