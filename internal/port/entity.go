package port

import "encoding/json"

// Entity is one record from a Port blueprint. The decoded fields cover what
// the purge workflow consumes; Raw preserves the complete original document
// so backups are faithful to what the API returned.
type Entity struct {
	Identifier string
	Title      string
	UpdatedAt  string
	CreatedAt  string

	// Status as found under properties, and the legacy top-level field.
	PropertiesStatus string
	LegacyStatus     string

	Raw json.RawMessage
}

func (e *Entity) UnmarshalJSON(data []byte) error {
	var doc struct {
		Identifier string `json:"identifier"`
		Title      string `json:"title"`
		Status     string `json:"status"`
		UpdatedAt  string `json:"updatedAt"`
		CreatedAt  string `json:"createdAt"`
		Properties struct {
			Status string `json:"status"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	e.Identifier = doc.Identifier
	e.Title = doc.Title
	e.UpdatedAt = doc.UpdatedAt
	e.CreatedAt = doc.CreatedAt
	e.PropertiesStatus = doc.Properties.Status
	e.LegacyStatus = doc.Status
	e.Raw = append(e.Raw[:0], data...)
	return nil
}

// Status returns the entity's status, preferring properties.status over the
// legacy top-level field.
func (e *Entity) Status() string {
	if e.PropertiesStatus != "" {
		return e.PropertiesStatus
	}
	return e.LegacyStatus
}

// DisplayName returns the title, falling back to the identifier.
func (e *Entity) DisplayName() string {
	if e.Title != "" {
		return e.Title
	}
	return e.Identifier
}

// LastActivity returns the most relevant activity timestamp: updatedAt when
// present, otherwise createdAt. Empty when the record carries neither.
func (e *Entity) LastActivity() string {
	if e.UpdatedAt != "" {
		return e.UpdatedAt
	}
	return e.CreatedAt
}
