package port

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntity_UnmarshalPreservesRaw(t *testing.T) {
	doc := `{"identifier":"u1","title":"User One","properties":{"status":"Inactive","team":"core"},"updatedAt":"2026-07-01T10:00:00Z","extra":{"nested":true}}`

	var e Entity
	require.NoError(t, json.Unmarshal([]byte(doc), &e))
	assert.Equal(t, "u1", e.Identifier)
	assert.Equal(t, "Inactive", e.PropertiesStatus)
	assert.Equal(t, "2026-07-01T10:00:00Z", e.UpdatedAt)

	// Raw keeps fields the struct does not model.
	var roundTrip map[string]any
	require.NoError(t, json.Unmarshal(e.Raw, &roundTrip))
	assert.Contains(t, roundTrip, "extra")
}

func TestEntity_StatusPrefersProperties(t *testing.T) {
	e := Entity{PropertiesStatus: "active", LegacyStatus: "inactive"}
	assert.Equal(t, "active", e.Status())

	e = Entity{LegacyStatus: "inactive"}
	assert.Equal(t, "inactive", e.Status())
}

func TestEntity_DisplayNameFallsBackToIdentifier(t *testing.T) {
	e := Entity{Identifier: "u1", Title: "User One"}
	assert.Equal(t, "User One", e.DisplayName())

	e = Entity{Identifier: "u1"}
	assert.Equal(t, "u1", e.DisplayName())
}

func TestEntity_LastActivityFallsBackToCreatedAt(t *testing.T) {
	e := Entity{UpdatedAt: "2026-08-01T00:00:00Z", CreatedAt: "2026-01-01T00:00:00Z"}
	assert.Equal(t, "2026-08-01T00:00:00Z", e.LastActivity())

	e = Entity{CreatedAt: "2026-01-01T00:00:00Z"}
	assert.Equal(t, "2026-01-01T00:00:00Z", e.LastActivity())

	e = Entity{}
	assert.Equal(t, "", e.LastActivity())
}
