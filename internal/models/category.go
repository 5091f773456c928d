package models

// Category is an entry of the fixed, server-defined category list.
type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

var categories = []Category{
	{ID: 1, Name: "Social", Description: "Социальные сети и мессенджеры", Icon: "fas fa-comments"},
	{ID: 2, Name: "Tools", Description: "Инструменты и утилиты", Icon: "fas fa-tools"},
	{ID: 3, Name: "Games", Description: "Игры", Icon: "fas fa-gamepad"},
	{ID: 4, Name: "Productivity", Description: "Продуктивность", Icon: "fas fa-briefcase"},
	{ID: 5, Name: "Entertainment", Description: "Развлечения", Icon: "fas fa-film"},
	{ID: 6, Name: "Education", Description: "Образование", Icon: "fas fa-graduation-cap"},
	{ID: 7, Name: DefaultCategory, Description: "Другое", Icon: "fas fa-ellipsis-h"},
}

// Categories returns a copy of the category list.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}
