package models

// All lists every persisted model, in migration order.
func All() []any {
	return []any{
		&User{},
		&Board{},
		&BoardRole{},
		&BoardMember{},
		&List{},
		&Card{},
		&CardAttachment{},
		&ExportJob{},
	}
}
