package models

// AllModels lists every model that migrations manage
func AllModels() []any {
	return []any{&Job{}, &RouteSearch{}}
}
