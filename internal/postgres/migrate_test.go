package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaOrder(t *testing.T) {
	pos := map[string]int{}
	for i, stmt := range schema {
		for _, table := range []string{"users", "categories", "products", "cart", "orders", "checkout_attempts"} {
			if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS "+table+" ") ||
				strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS "+table+"(") {
				pos[table] = i
			}
		}
	}
	assert.Len(t, pos, 6)
	// referenced tables come first
	assert.Less(t, pos["users"], pos["cart"])
	assert.Less(t, pos["products"], pos["cart"])
	assert.Less(t, pos["categories"], pos["products"])
	assert.Less(t, pos["products"], pos["orders"])
	assert.Less(t, pos["users"], pos["checkout_attempts"])
}
