package clickup

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Custom field type tags that change how a value is decoded.
const (
	FieldDropDown   = "drop_down"
	FieldAttachment = "attachment"
)

// Timestamp is an epoch-milliseconds instant. ClickUp sends it as a string,
// occasionally as a number. Anything unparsable decodes to the zero time.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements the json.Unmarshaler interface for Timestamp.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		ts.Time = time.Time{}
		return nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		ts.Time = time.Time{}
		return nil
	}
	ts.Time = time.UnixMilli(ms)
	return nil
}

type Status struct {
	Status string `json:"status"`
	Color  string `json:"color"`
	Type   string `json:"type,omitempty"`
}

type List struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type Space struct {
	ID string `json:"id"`
}

type Option struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	OrderIndex int    `json:"orderindex,omitempty"`
}

type TypeConfig struct {
	Options []Option `json:"options,omitempty"`
}

type Attachment struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	URLWithHost string `json:"url_w_host"`
}

// ValueKind tags which member of a FieldValue is meaningful.
type ValueKind int

const (
	Absent ValueKind = iota
	Scalar
	DropdownIndex
	AttachmentList
)

func (k ValueKind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case DropdownIndex:
		return "dropdown_index"
	case AttachmentList:
		return "attachment_list"
	default:
		return "absent"
	}
}

// FieldValue is a custom field value whose shape depends on the field type.
//
//	Scalar         -> Raw holds a string, json.Number, bool, or decoded object/array
//	DropdownIndex  -> Index holds a non-negative integer, not yet bounds-checked
//	AttachmentList -> Attachments holds at least one entry
//
// Raw is set for every non-null value, whatever its Kind, so a value that
// does not fit its field type is still readable.
type FieldValue struct {
	Kind        ValueKind
	Raw         any
	Index       int
	Attachments []Attachment
}

type CustomField struct {
	ID         string
	Name       string
	Type       string
	TypeConfig TypeConfig
	Value      FieldValue
}

// UnmarshalJSON decodes a custom field, picking the value shape from the type
// tag. Malformed values and type configs decode to an absent value instead of
// failing the whole page.
func (f *CustomField) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID         string          `json:"id"`
		Name       string          `json:"name"`
		Type       string          `json:"type"`
		TypeConfig json.RawMessage `json:"type_config"`
		Value      json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	f.ID = raw.ID
	f.Name = raw.Name
	f.Type = raw.Type
	f.TypeConfig = TypeConfig{}
	if len(raw.TypeConfig) > 0 {
		var tc TypeConfig
		if err := json.Unmarshal(raw.TypeConfig, &tc); err == nil {
			f.TypeConfig = tc
		}
	}
	f.Value = decodeValue(raw.Type, raw.Value)
	return nil
}

func decodeValue(fieldType string, b json.RawMessage) FieldValue {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return FieldValue{Kind: Absent}
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return FieldValue{Kind: Absent}
	}

	switch fieldType {
	case FieldDropDown:
		n, ok := raw.(json.Number)
		if !ok {
			return FieldValue{Kind: Absent, Raw: raw}
		}
		f, err := n.Float64()
		if err != nil || f < 0 || f != float64(int(f)) {
			return FieldValue{Kind: Absent, Raw: raw}
		}
		return FieldValue{Kind: DropdownIndex, Raw: raw, Index: int(f)}
	case FieldAttachment:
		var atts []Attachment
		if err := json.Unmarshal(b, &atts); err != nil || len(atts) == 0 {
			return FieldValue{Kind: Absent, Raw: raw}
		}
		return FieldValue{Kind: AttachmentList, Raw: raw, Attachments: atts}
	}
	return FieldValue{Kind: Scalar, Raw: raw}
}

// Task is one record as returned by the task-listing endpoint.
type Task struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	DateCreated  Timestamp     `json:"date_created"`
	Status       Status        `json:"status"`
	CustomFields []CustomField `json:"custom_fields"`
	URL          string        `json:"url"`
	List         List          `json:"list"`
	Space        *Space        `json:"space,omitempty"`
}

// InSpace reports whether the task belongs to the given space.
func (t *Task) InSpace(spaceID string) bool {
	return t.Space != nil && t.Space.ID == spaceID
}

// Field returns the first custom field with exactly the given name.
func (t *Task) Field(name string) (*CustomField, bool) {
	for i := range t.CustomFields {
		if t.CustomFields[i].Name == name {
			return &t.CustomFields[i], true
		}
	}
	return nil, false
}

type TasksResponse struct {
	Tasks []Task `json:"tasks"`
}
