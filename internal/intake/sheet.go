package intake

import (
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Sheet is a semester's subjects kept in a TOML file:
//
//	previous_cgpa = 8.5
//
//	[[subject]]
//	name = "Maths"
//	cie = 42
//	credits = 4
type Sheet struct {
	PreviousCGPA *float64       `toml:"previous_cgpa"`
	Subjects     []SubjectInput `toml:"subject"`
}

func LoadSheet(path string) (Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return Sheet{}, err
	}
	defer f.Close()
	sh, err := ReadSheet(f)
	if err != nil {
		return Sheet{}, fmt.Errorf("%s: %w", path, err)
	}
	return sh, nil
}

func ReadSheet(r io.Reader) (Sheet, error) {
	var sh Sheet
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sh); err != nil {
		return Sheet{}, err
	}
	return sh, nil
}
