package clickup

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeField(t *testing.T, raw string) CustomField {
	t.Helper()
	var f CustomField
	require.NoError(t, json.Unmarshal([]byte(raw), &f))
	return f
}

func TestCustomField_UnmarshalJSON(t *testing.T) {
	t.Run("Should decode a dropdown index with its options", func(t *testing.T) {
		f := decodeField(t, `{"id":"c1","name":"Sexo","type":"drop_down",
			"type_config":{"options":[{"name":"Feminino"},{"name":"Masculino"}]},"value":1}`)
		assert.Equal(t, DropdownIndex, f.Value.Kind)
		assert.Equal(t, 1, f.Value.Index)
		require.Len(t, f.TypeConfig.Options, 2)
		assert.Equal(t, "Masculino", f.TypeConfig.Options[1].Name)
	})

	t.Run("Should mark non-numeric and negative dropdown values absent", func(t *testing.T) {
		for _, v := range []string{`"1"`, `-1`, `1.5`, `true`, `null`, `[0]`} {
			f := decodeField(t, `{"name":"x","type":"drop_down","value":`+v+`}`)
			assert.Equal(t, Absent, f.Value.Kind, "value %s", v)
		}
	})

	t.Run("Should accept an integral float as a dropdown index", func(t *testing.T) {
		f := decodeField(t, `{"name":"x","type":"drop_down","value":2.0}`)
		assert.Equal(t, DropdownIndex, f.Value.Kind)
		assert.Equal(t, 2, f.Value.Index)
	})

	t.Run("Should decode attachments and drop empty lists", func(t *testing.T) {
		f := decodeField(t, `{"name":"Curriculum","type":"attachment",
			"value":[{"id":"a","url_w_host":"https://files/a.pdf"},{"id":"b","url_w_host":"https://files/b.pdf"}]}`)
		assert.Equal(t, AttachmentList, f.Value.Kind)
		assert.Len(t, f.Value.Attachments, 2)

		empty := decodeField(t, `{"name":"Curriculum","type":"attachment","value":[]}`)
		assert.Equal(t, Absent, empty.Value.Kind)

		wrong := decodeField(t, `{"name":"Curriculum","type":"attachment","value":"nope"}`)
		assert.Equal(t, Absent, wrong.Value.Kind)
		assert.Equal(t, "nope", wrong.Value.Raw)
	})

	t.Run("Should keep scalar numbers in their wire form", func(t *testing.T) {
		f := decodeField(t, `{"name":"CPF","type":"number","value":12345678901}`)
		assert.Equal(t, Scalar, f.Value.Kind)
		assert.Equal(t, json.Number("12345678901"), f.Value.Raw)
	})

	t.Run("Should ignore a type config with an unexpected shape", func(t *testing.T) {
		f := decodeField(t, `{"name":"Nota","type":"drop_down","type_config":{"options":"bad"},"value":0}`)
		assert.Empty(t, f.TypeConfig.Options)
		assert.Equal(t, DropdownIndex, f.Value.Kind)
	})
}

func TestTask_Decode(t *testing.T) {
	raw := `{
		"id": "86a1",
		"name": "Maria Souza",
		"date_created": "1700000000000",
		"status": {"status": "em análise", "color": "#d3d3d3"},
		"custom_fields": [
			{"id": "1", "name": "CPF", "type": "short_text", "value": "123.456.789-00"},
			{"id": "2", "name": "CPF", "type": "short_text", "value": "duplicate"}
		],
		"url": "https://app.clickup.com/t/86a1",
		"list": {"name": "Processo Seletivo 2024"}
	}`
	var task Task
	require.NoError(t, json.Unmarshal([]byte(raw), &task))

	assert.Equal(t, "Maria Souza", task.Name)
	assert.True(t, task.DateCreated.Equal(time.UnixMilli(1700000000000)))
	assert.Equal(t, "em análise", task.Status.Status)
	assert.Equal(t, "Processo Seletivo 2024", task.List.Name)
	assert.False(t, task.InSpace("s1"))

	f, ok := task.Field("CPF")
	require.True(t, ok)
	assert.Equal(t, "123.456.789-00", f.Value.Raw)

	_, ok = task.Field("cpf")
	assert.False(t, ok)
}

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`1700000000000`), &ts))
	assert.Equal(t, int64(1700000000000), ts.UnixMilli())

	require.NoError(t, json.Unmarshal([]byte(`"not a date"`), &ts))
	assert.True(t, ts.IsZero())
}
