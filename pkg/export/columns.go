package export

import (
	"errors"
	"time"

	"github.com/harrisonrobin/applytrack/pkg/applicant"
)

const (
	SheetName    = "Inscrições"
	NotAvailable = "N/A"
)

var ErrNoRecords = errors.New("no records to export")

type Column struct {
	Key    string
	Header string
	Width  float64
}

// Columns is the spreadsheet layout shared by the xlsx file and Google Sheets.
var Columns = []Column{
	{applicant.KeyForm, "Formulário", 20},
	{applicant.KeyCreated, "Data de Inscrição", 15},
	{applicant.KeyRole, "Cargo", 20},
	{applicant.KeyName, "Nome", 30},
	{applicant.KeyCity, "Município", 15},
	{applicant.KeyPhone1, "Telefone", 15},
	{applicant.KeyEmail1, "Email", 25},
	{applicant.KeyStatus, "Status", 15},
	{applicant.KeyCPF, "CPF", 15},
	{applicant.KeyBirthDate, "Data de Nascimento", 15},
	{applicant.KeyGender, "Gênero", 10},
	{applicant.KeyMaritalStatus, "Estado Civil", 15},
	{applicant.KeyAddress, "Endereço", 30},
	{applicant.KeyDistrict, "Bairro", 20},
	{applicant.KeyDisability, "PCD", 5},
	{applicant.KeyDisabilityDetail, "Descrição PCD", 20},
	{applicant.KeyURL, "Link ClickUp", 30},
}

func Header() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Header
	}
	return out
}

// Rows renders one row per record. Empty values become N/A.
func Rows(records []applicant.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for i := range records {
		row := make([]string, len(Columns))
		for j, c := range Columns {
			v := records[i].Get(c.Key)
			if v == "" {
				v = NotAvailable
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return rows
}

// FileName is the default export file name for the given day.
func FileName(now time.Time) string {
	return "clickup-inscricoes-" + now.Format("2006-01-02") + ".xlsx"
}
