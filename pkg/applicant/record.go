package applicant

import "time"

// Record is the flat, fixed-shape view of one application task. Optional
// fields are nil when the task has no usable value for them.
type Record struct {
	ID        string    `json:"id"`
	Created   string    `json:"date_created"`
	CreatedAt time.Time `json:"created_at"`
	Role      *string   `json:"badge"`
	Name      string    `json:"name"`

	BirthDate     *string `json:"birth_date"`
	CPF           *string `json:"cpf"`
	Gender        *string `json:"genre"`
	MaritalStatus *string `json:"civil_state"`
	Address1      *string `json:"address1"`
	Address2      *string `json:"address2"`
	Address3      *string `json:"address3"`
	Phone1        *string `json:"phone_number1"`
	Phone2        *string `json:"phone_number2"`
	Email1        *string `json:"email_address1"`
	Email2        *string `json:"email_address2"`

	Disability       *string `json:"pcd"`
	DisabilityDetail *string `json:"pcd_name"`

	Curriculum        *string `json:"curriculum"`
	HighSchoolCert    *string `json:"middle_graduation"`
	DegreeCert        *string `json:"high_graduation"`
	CouncilCard       *string `json:"consul_register"`
	DebtClearanceCert *string `json:"debit_certify"`

	Status          string  `json:"status"`
	StatusColor     string  `json:"status_color,omitempty"`
	RejectionReason *string `json:"indered_why"`
	FormName        string  `json:"form_name"`
	URL             string  `json:"url"`
}

// Column keys accepted by Get. They double as sort keys and export columns.
const (
	KeyID                = "id"
	KeyCreated           = "created"
	KeyRole              = "role"
	KeyName              = "name"
	KeyBirthDate         = "birth_date"
	KeyCPF               = "cpf"
	KeyGender            = "gender"
	KeyMaritalStatus     = "marital_status"
	KeyAddress           = "address"
	KeyDistrict          = "district"
	KeyCity              = "city"
	KeyPhone1            = "phone1"
	KeyPhone2            = "phone2"
	KeyEmail1            = "email1"
	KeyEmail2            = "email2"
	KeyDisability        = "disability"
	KeyDisabilityDetail  = "disability_detail"
	KeyCurriculum        = "curriculum"
	KeyHighSchoolCert    = "high_school_cert"
	KeyDegreeCert        = "degree_cert"
	KeyCouncilCard       = "council_card"
	KeyDebtClearanceCert = "debt_clearance_cert"
	KeyStatus            = "status"
	KeyRejectionReason   = "rejection_reason"
	KeyForm              = "form"
	KeyURL               = "url"
)

var accessors = map[string]func(*Record) *string{
	KeyID:                func(r *Record) *string { return &r.ID },
	KeyCreated:           func(r *Record) *string { return &r.Created },
	KeyRole:              func(r *Record) *string { return r.Role },
	KeyName:              func(r *Record) *string { return &r.Name },
	KeyBirthDate:         func(r *Record) *string { return r.BirthDate },
	KeyCPF:               func(r *Record) *string { return r.CPF },
	KeyGender:            func(r *Record) *string { return r.Gender },
	KeyMaritalStatus:     func(r *Record) *string { return r.MaritalStatus },
	KeyAddress:           func(r *Record) *string { return r.Address1 },
	KeyDistrict:          func(r *Record) *string { return r.Address2 },
	KeyCity:              func(r *Record) *string { return r.Address3 },
	KeyPhone1:            func(r *Record) *string { return r.Phone1 },
	KeyPhone2:            func(r *Record) *string { return r.Phone2 },
	KeyEmail1:            func(r *Record) *string { return r.Email1 },
	KeyEmail2:            func(r *Record) *string { return r.Email2 },
	KeyDisability:        func(r *Record) *string { return r.Disability },
	KeyDisabilityDetail:  func(r *Record) *string { return r.DisabilityDetail },
	KeyCurriculum:        func(r *Record) *string { return r.Curriculum },
	KeyHighSchoolCert:    func(r *Record) *string { return r.HighSchoolCert },
	KeyDegreeCert:        func(r *Record) *string { return r.DegreeCert },
	KeyCouncilCard:       func(r *Record) *string { return r.CouncilCard },
	KeyDebtClearanceCert: func(r *Record) *string { return r.DebtClearanceCert },
	KeyStatus:            func(r *Record) *string { return &r.Status },
	KeyRejectionReason:   func(r *Record) *string { return r.RejectionReason },
	KeyForm:              func(r *Record) *string { return &r.FormName },
	KeyURL:               func(r *Record) *string { return &r.URL },
}

// HasKey reports whether key names a record column.
func HasKey(key string) bool {
	_, ok := accessors[key]
	return ok
}

// Get returns the column value for key, or "" when the value is nil or the
// key is unknown.
func (r *Record) Get(key string) string {
	fn, ok := accessors[key]
	if !ok {
		return ""
	}
	if v := fn(r); v != nil {
		return *v
	}
	return ""
}
