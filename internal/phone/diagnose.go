package phone

// SampleInputs is the fixed list the admin phone-validation check runs.
var SampleInputs = []string{
	"+201119065057",
	"01119065057",
	"0111 906 5057",
	"+20 111 906 5057",
	"+1234567890",
	"+44 20 7946 0958",
	"+1 (555) 123-4567",
	"123",
	"invalid",
	"+999999999999999",
}

// Diagnosis is one line of a validation report.
type Diagnosis struct {
	Input  string  `json:"phone"`
	Valid  bool    `json:"is_valid"`
	Digits string  `json:"digits"`
	Number *Number `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Diagnose normalizes every input under region and reports each outcome.
func (n *Normalizer) Diagnose(inputs []string, region string) []Diagnosis {
	out := make([]Diagnosis, 0, len(inputs))
	for _, in := range inputs {
		d := Diagnosis{Input: in, Digits: ExtractDigits(in)}
		num, err := n.Normalize(in, region)
		if err != nil {
			d.Error = err.Error()
		} else {
			d.Valid = true
			d.Number = &num
		}
		out = append(out, d)
	}
	return out
}
