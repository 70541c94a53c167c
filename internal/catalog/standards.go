package catalog

var GradeLevels = []string{
	"Kindergarten", "1st Grade", "2nd Grade", "3rd Grade", "4th Grade", "5th Grade",
	"6th Grade", "7th Grade", "8th Grade", "9th Grade", "10th Grade", "11th Grade", "12th Grade", "University",
}

const DefaultGradeLevel = "6th Grade"

type Standard struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NGSSStandards is the subset of Next Generation Science Standards offered for planning tools.
var NGSSStandards = []Standard{
	{ID: "K-PS2-1", Name: "K-PS2-1 Motion and Stability: Forces and Interactions"},
	{ID: "K-LS1-1", Name: "K-LS1-1 From Molecules to Organisms: Structures and Processes"},
	{ID: "K-ESS2-1", Name: "K-ESS2-1 Earth's Systems"},
	{ID: "1-PS4-1", Name: "1-PS4-1 Waves and their Applications in Technologies for Information Transfer"},
	{ID: "1-LS1-1", Name: "1-LS1-1 From Molecules to Organisms: Structures and Processes"},
	{ID: "2-PS1-1", Name: "2-PS1-1 Matter and Its Interactions"},
	{ID: "2-LS2-1", Name: "2-LS2-1 Ecosystems: Interactions, Energy, and Dynamics"},
	{ID: "3-PS2-1", Name: "3-PS2-1 Motion and Stability: Forces and Interactions"},
	{ID: "3-LS1-1", Name: "3-LS1-1 From Molecules to Organisms: Structures and Processes"},
	{ID: "4-PS3-1", Name: "4-PS3-1 Energy"},
	{ID: "4-LS1-1", Name: "4-LS1-1 From Molecules to Organisms: Structures and Processes"},
	{ID: "5-PS1-1", Name: "5-PS1-1 Matter and Its Interactions"},
	{ID: "5-LS1-1", Name: "5-LS1-1 From Molecules to Organisms: Structures and Processes"},
	{ID: "MS-PS1-1", Name: "MS-PS1-1 Matter and Its Interactions"},
	{ID: "MS-LS1-1", Name: "MS-LS1-1 From Molecules to Organisms: Structures and Processes"},
	{ID: "MS-ESS1-1", Name: "MS-ESS1-1 Earth's Place in the Universe"},
	{ID: "HS-PS1-1", Name: "HS-PS1-1 Matter and Its Interactions"},
	{ID: "HS-LS1-1", Name: "HS-LS1-1 From Molecules to Organisms: Structures and Processes"},
	{ID: "HS-ESS1-1", Name: "HS-ESS1-1 Earth's Place in the Universe"},
}

const (
	GradeLevelInputID = "gradeLevel"
	NGSSInputID       = "ngssStandard"
)

func gradeLevelInput() InputSpec {
	return InputSpec{
		ID:       GradeLevelInputID,
		Label:    "Grade Level",
		Kind:     SingleSelect,
		Options:  stringOptions(GradeLevels),
		Required: true,
		Default:  DefaultGradeLevel,
	}
}

// The standard's full name is the submitted value; it is what the prompt mentions.
func ngssInput() InputSpec {
	opts := make([]Option, 0, len(NGSSStandards))
	for _, s := range NGSSStandards {
		opts = append(opts, Option{Value: s.Name, Label: s.Name})
	}
	return InputSpec{
		ID:          NGSSInputID,
		Label:       "NGSS Standard (Optional)",
		Kind:        SingleSelect,
		Placeholder: "Select a standard",
		Options:     opts,
	}
}

func stringOptions(values []string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: v, Label: v})
	}
	return out
}
