package cmd

import (
	"fmt"

	"gorm.io/gorm/schema"
)

// tableName resolves the table a model maps to. Every model names its
// table explicitly.
func tableName(model any) string {
	if t, ok := model.(schema.Tabler); ok {
		return t.TableName()
	}
	return fmt.Sprintf("%T", model)
}
