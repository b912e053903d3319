package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	for _, s := range []string{"completed", "failed", "cancelled", "other"} {
		assert.Contains(t, Status(s), s)
	}
}

func TestTable(t *testing.T) {
	out := Table([][]string{
		{"ENTITY", "CREATED"},
		{"attendance", "4"},
	})
	lines := strings.Split(out, "\n")
	if assert.Len(t, lines, 2) {
		assert.True(t, strings.HasPrefix(lines[0], "ENTITY      CREATED"), lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "attendance  4"), lines[1])
	}
	assert.Empty(t, Table(nil))
}
