package main

import (
	"bytes"
	"strings"
	"testing"

	"carehive/internal/domain/doses"
	"carehive/internal/domain/medicines"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBoard(t *testing.T) {
	items := []medicines.BoardItem{
		{Medicine: medicines.Medicine{Name: "Paracetamol", Relation: "m-1"}, Status: doses.DoseStatus{Status: doses.StatusNext, CurrentTime: "8:00PM", TakenToday: 1}},
		{Medicine: medicines.Medicine{Name: "Metformin", Relation: "m-2"}, Status: doses.DoseStatus{Status: doses.StatusDue, CurrentTime: "8:00AM"}},
	}
	medicines.SortBoard(items)

	var buf bytes.Buffer
	require.NoError(t, printBoard(&buf, items))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "STATUS"))
	assert.Contains(t, lines[1], "Metformin")
	assert.Contains(t, lines[2], "Paracetamol")
}

func TestCommands_Registered(t *testing.T) {
	assert.Equal(t, "serve", serveCmd().Name())
	assert.Equal(t, "migrate", migrateCmd().Name())

	d := dosesCmd()
	assert.Equal(t, "doses", d.Name())
	assert.NotNil(t, d.Flags().Lookup("user"))
}
