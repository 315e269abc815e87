package applicant

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harrisonrobin/applytrack/pkg/clickup"
)

const dateLayout = "02/01/2006"

const roleFieldName = "Cargo Pretendido"

// roleFieldNames are tried in order when no dropdown named exactly
// "Cargo Pretendido" carries a valid selection.
// TODO: drop the alternates once every ClickUp form uses "Cargo Pretendido".
var roleFieldNames = []string{
	"Cargo Pretendido",
	"Cargo",
	"cargo pretendido",
	"cargo",
	"Cargo pretendido",
	"CARGO PRETENDIDO",
	"CARGO",
}

type Normalizer struct {
	loc *time.Location
	log *log.Logger
}

// NewNormalizer returns a Normalizer that formats creation dates in loc.
// A nil loc means time.Local.
func NewNormalizer(loc *time.Location, logger *log.Logger) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Normalizer{loc: loc, log: logger}
}

// Normalize converts one task into a Record. It never fails: missing or
// malformed custom fields leave the matching Record field nil.
func (n *Normalizer) Normalize(task clickup.Task) Record {
	role, rule := ResolveRole(&task)
	n.log.Debug("role resolved", "task", task.ID, "rule", rule)

	return Record{
		ID:        task.ID,
		Created:   n.formatDate(task.DateCreated.Time),
		CreatedAt: task.DateCreated.Time,
		Role:      role,
		Name:      task.Name,

		BirthDate:     ResolveField(&task, "Data de Nascimento"),
		CPF:           ResolveField(&task, "CPF"),
		Gender:        ResolveField(&task, "Sexo"),
		MaritalStatus: ResolveField(&task, "Estado Civil"),
		Address1:      ResolveField(&task, "Endereço"),
		Address2:      ResolveField(&task, "Bairro"),
		Address3:      ResolveField(&task, "Município"),
		Phone1:        ResolveField(&task, "Telefone 1"),
		Phone2:        ResolveField(&task, "Telefone 2"),
		Email1:        ResolveField(&task, "Email 1"),
		Email2:        ResolveField(&task, "Email 2"),

		Disability:       ResolveField(&task, "Pessoa com deficiência"),
		DisabilityDetail: ResolveField(&task, "Descrever deficiência"),

		Curriculum:        ResolveField(&task, "Curriculum"),
		HighSchoolCert:    ResolveField(&task, "Certificado de Conclusão do Ensino Médio"),
		DegreeCert:        ResolveField(&task, "Certificado de conclusão da graduação"),
		CouncilCard:       ResolveField(&task, "Carteirinha do conselho"),
		DebtClearanceCert: ResolveField(&task, "Certidão negativa de débitos"),

		Status:          task.Status.Status,
		StatusColor:     task.Status.Color,
		RejectionReason: ResolveField(&task, "Motivo do Indeferimento"),
		FormName:        task.List.Name,
		URL:             task.URL,
	}
}

func (n *Normalizer) formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(n.loc).Format(dateLayout)
}

// ResolveField returns the value of the first custom field named exactly name.
func ResolveField(task *clickup.Task, name string) *string {
	f, ok := task.Field(name)
	if !ok {
		return nil
	}
	return resolveValue(f)
}

func resolveValue(f *clickup.CustomField) *string {
	switch f.Type {
	case clickup.FieldDropDown:
		return dropdownOption(f)
	case clickup.FieldAttachment:
		if f.Value.Kind != clickup.AttachmentList || len(f.Value.Attachments) == 0 {
			return nil
		}
		url := f.Value.Attachments[0].URLWithHost
		if url == "" {
			return nil
		}
		return &url
	}
	if f.Value.Kind != clickup.Scalar {
		return nil
	}
	return stringify(f.Value.Raw)
}

func dropdownOption(f *clickup.CustomField) *string {
	if f.Value.Kind != clickup.DropdownIndex {
		return nil
	}
	opts := f.TypeConfig.Options
	if f.Value.Index < 0 || f.Value.Index >= len(opts) {
		return nil
	}
	name := opts[f.Value.Index].Name
	return &name
}

// ResolveRole finds the job role applied for. The second return value names
// the rule that matched and is only meant for diagnostics.
func ResolveRole(task *clickup.Task) (*string, string) {
	for i := range task.CustomFields {
		f := &task.CustomFields[i]
		if f.Name == roleFieldName && f.Type == clickup.FieldDropDown {
			if v := dropdownOption(f); v != nil {
				return v, "exact_dropdown"
			}
		}
	}

	var match *clickup.CustomField
	rule := "none"
	for _, name := range roleFieldNames {
		if f, ok := task.Field(name); ok {
			match, rule = f, "alternate_name"
			break
		}
	}
	if match == nil {
		for i := range task.CustomFields {
			if strings.Contains(strings.ToLower(task.CustomFields[i].Name), "cargo") {
				match, rule = &task.CustomFields[i], "substring"
				break
			}
		}
	}
	if match == nil {
		return nil, rule
	}

	if match.Type == clickup.FieldDropDown {
		return dropdownOption(match), rule
	}
	// Any other truthy value is used as text, whatever the field type says.
	if truthy(match.Value.Raw) {
		s := displayString(match.Value.Raw)
		return &s, rule
	}
	return nil, rule
}

// displayString renders v as a display value: arrays are joined with commas
// and nested nulls become empty, objects collapse to "[object Object]".
func displayString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = displayString(e)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return "[object Object]"
	}
	if s := stringify(v); s != nil {
		return *s
	}
	return ""
}

func stringify(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case json.Number:
		s = t.String()
	case bool:
		s = strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		s = string(b)
	}
	return &s
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case bool:
		return t
	default:
		return true
	}
}
